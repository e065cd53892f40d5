// Package store 提供 core.Store 的实现（内存、Redis、Badger）以及其上的产物存储 ArtifactStore。
//
// 接口定义在 core 包：
//
//	var s core.Store = NewMemoryStore()
//	var kv core.KeyValueStore = NewMemoryStore()
//	artifacts := NewArtifactStore(s)
package store
