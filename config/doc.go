// Package config 提供 cricketflow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → .env 文件 → 环境变量 的顺序合并，
// 环境变量使用 CRICKETFLOW_<SECTION>_<FIELD> 命名。
package config
