// Copyright (c) CricketFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 提供板球问答的证据模型与 LLM 判定组件。

检索到的每条证据都带有来源标签；结构化查询、实时快照和 Web 搜索
属于"特权"来源，跳过文档相关性评分。所有判定组件在 LLM 调用失败、
超时或输出无法解析时一律按否定结论处理（fail closed）。

# 核心接口/类型

  - Evidence / Source：证据条目与来源标签
  - RelevanceVerdict / QualityVerdict：二元判定结果
  - Classifier：问题级二元分类器（实时快照相关性、SQL 相关性）
  - DocumentGrader：逐条文档相关性过滤
  - QualityGrader：答案的有据性与切题性判定
  - Generator：基于证据生成简洁答案，支持降级模式
  - Rewriter：面向检索优化的问题改写

# 主要能力

  - 严格 JSON 判定解析：{"binary_score": "yes"|"no"}，经 validator 校验
  - 分类结果 LRU 缓存（按分类器与问题去重）
  - 上下文 token 预算裁剪（tiktoken 计数，始终保留首条证据）
*/
package rag
