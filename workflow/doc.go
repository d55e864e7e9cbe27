// Copyright (c) CricketFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 实现单个问题的检索、生成与自校正状态机。

# 概述

一次提问对应一个 Episode。Orchestrator 从 RETRIEVE 出发，按固定顺序
咨询证据来源（实时快照、结构化查询、语义检索），经文档评分后生成答案，
再由两个质量评分器判断答案是否有据、是否切题。证据不足时升级到联网
搜索（每个 episode 至多一次），仍不足时改写问题重新检索。

# 状态与转移

  - RETRIEVE → GRADE_DOCUMENTS
  - GRADE_DOCUMENTS → GENERATE | WEB_SEARCH | TRANSFORM_QUERY
  - GENERATE → GRADE_GENERATION
  - GRADE_GENERATION → TERMINATE | GENERATE | WEB_SEARCH | TRANSFORM_QUERY
  - WEB_SEARCH → GRADE_DOCUMENTS
  - TRANSFORM_QUERY → RETRIEVE

转移判定是纯函数（NextAfterGradeDocuments、NextAfterGradeGeneration），
副作用全部集中在 Orchestrator.execute 中。

# 终止保证

  - 检索轮次达到上限后强制生成
  - 校验轮次超过上限后直接接受答案
  - 全局步数上限耗尽时返回最后一次生成的答案；从未生成时返回错误

任何分类器、评分器或证据来源失败都按"否"或"无证据"处理，不会中断 episode。
*/
package workflow
