// 版权所有 2024 CricketFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理结构化数据存储 deliveries 表的 Schema 版本，
支持 PostgreSQL、MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的 SQL 文件通过 embed.FS 内嵌在二进制中（migrations/<dialect>），
由 iofs 源驱动读取。SQLite 使用纯 Go 驱动，无需 CGO。

# 核心类型

  - Migrator / DefaultMigrator：Up、Down、Steps、Goto、Force、Status 等操作，
    ctx 取消时请求 golang-migrate 在当前迁移结束后停止。
  - Config：数据库类型、连接串或已打开的 *sql.DB、版本表名与锁超时。
  - CLI：cricketflow migrate 子命令的格式化输出与分发。

工厂函数 NewMigratorFromConfig / NewMigratorFromDatabaseConfig 直接复用
应用配置中的 database 段。
*/
package migration
