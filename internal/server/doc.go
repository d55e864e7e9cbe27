// 版权所有 2024 CricketFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 cricketflow serve 命令下 HTTP 服务器的生命周期。

Manager 封装 net/http.Server，提供非阻塞 Start、幂等 Shutdown 与
阻塞式 Run。Run 在 ctx 取消（通常来自 signal.NotifyContext）或
服务异常退出时执行优雅关闭。API 服务与 Prometheus 指标服务各自
持有一个 Manager，由 errgroup 统一等待。
*/
package server
