package core

import "context"

// InteractionReader 是交互日志的读取接口（外部文档库的只读视图）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（source）实现
//   - 通过构造函数注入 dataset.Builder，不使用全局数据库连接
//
// 实现：
//   - source.MongoInteractionReader（clickhistories + user_ratings）
//   - source.MemoryInteractionReader（测试）
type InteractionReader interface {
	// ReadInteractions 最多返回 limit 条记录；limit <= 0 表示不限制
	ReadInteractions(ctx context.Context, limit int) ([]RawInteraction, error)
}

// CatalogReader 是物品目录的读取接口。
//
// 实现：
//   - source.MongoCatalogReader（movies）
//   - source.MemoryCatalogReader（测试）
type CatalogReader interface {
	// ReadCatalog 最多返回 limit 个物品；limit <= 0 表示全部
	ReadCatalog(ctx context.Context, limit int) ([]ItemFeature, error)
}
