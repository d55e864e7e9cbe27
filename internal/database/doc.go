// 版权所有 2024 CricketFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理与只读查询执行。

# 概述

PoolManager 封装 GORM 与 database/sql 的连接池配置，按驱动名
（postgres / mysql / sqlite）选择方言。结构化统计查询通过
ReadOnlyQuery 执行：postgres 使用 READ ONLY 事务，其他方言依赖
事务结束时的强制回滚，结果行数受上限约束。

# 核心类型

  - PoolManager：连接池管理器，提供 DB()、Ping()、Close() 等生命周期方法。
  - PoolConfig：连接池配置。
  - QueryResult：列名、行数据与是否截断。

# 主要能力

  - Open：从 config.DatabaseConfig 打开数据库。
  - WithReadOnlyTransaction / ReadOnlyQuery：只读执行原始 SQL。
  - WithTransactionRetry：死锁、序列化失败时指数退避重试（数据导入使用）。
*/
package database
