/*
Package testutil 提供 cricketflow 测试的共享工具。

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext
  - 异步断言: AssertEventuallyTrue
  - 文件辅助: WriteTempFile

# 子包

  - testutil/mocks: MockProvider，按提示词片段或模型名脚本化 LLM 回复，
    支持错误注入、延迟与调用记录
  - testutil/fixtures: 实时比赛快照样例与 Verdict JSON 片段
*/
package testutil
