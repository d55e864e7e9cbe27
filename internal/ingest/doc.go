/*
包 ingest 将逐球数据 CSV（deliveries.csv）导入结构化数据存储的 deliveries 表。

表为空时导入；表非空时跳过，除非指定 Truncate。整个导入在单个事务内按批次
CreateInBatches 写入，数值列无法解析时记为 0，"NA"、"nan" 等标记写为 NULL。
*/
package ingest
