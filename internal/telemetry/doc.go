// Package telemetry 封装 OpenTelemetry SDK 初始化，为 cricketflow 提供
// TracerProvider 与 MeterProvider。workflow 包的 episode/状态 span 通过全局
// TracerProvider 导出；遥测关闭时使用 noop 实现，不连接任何外部服务。
package telemetry
