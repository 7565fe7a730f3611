// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：dv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：document(文档)、archive(归档)、model(分类模型)
// 动作/状态：入库(ingested)、更新(updated)、删除(deleted)、归档(archived)、再训练(retrained)

const (
	// 文档领域.
	TopicDocumentIngested = "dv.document.ingested" // 文档入库完成（元数据、内容与字段已落库）
	TopicDocumentUpdated  = "dv.document.updated"  // 文档元数据更新（含类型修正反馈）
	TopicDocumentDeleted  = "dv.document.deleted"  // 文档被删除（软删或永久删）

	// 归档领域.
	TopicDocumentArchived = "dv.document.archived" // 一个期间的冷数据迁入分区完成
	TopicArchivePruned    = "dv.archive.pruned"    // 超额分区被裁剪

	// 分类模型领域.
	TopicModelRetrained = "dv.model.retrained" // 新模型制品落盘并已热切换
)

// 主题分组，用于批量订阅.
var (
	// DocumentTopics 文档相关主题集合.
	DocumentTopics = []string{
		TopicDocumentIngested, TopicDocumentUpdated, TopicDocumentDeleted,
	}

	// ArchiveTopics 归档相关主题集合.
	ArchiveTopics = []string{
		TopicDocumentArchived, TopicArchivePruned,
	}

	// ModelTopics 模型相关主题集合.
	ModelTopics = []string{
		TopicModelRetrained,
	}
)
