// 版权所有 2024 CricketFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供问答链路使用的大语言模型接入层。

# Provider 抽象

核心接口是 [Provider]：同步补全、健康检查与名称。分类器、评分器、
SQL 生成、问题改写与答案生成都只依赖该接口，具体实现位于
llm/providers/openai（OpenAI 兼容接口）。

# 弹性

[ResilientProvider] 为任意 Provider 增加单次调用超时与指数退避重试，
仅对 [Error.Retryable] 为 true 的错误重试；调用结果通过 [Recorder]
上报给指标采集器。
*/
package llm
