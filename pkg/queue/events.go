package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishDocumentIngested 发布 dv.document.ingested 事件。
// 在文档元数据、内容与抽取字段全部落库之后调用，通知下游流程。
func PublishDocumentIngested(pub message.Publisher, payload DocumentIngestedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDocumentIngested, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDocumentIngested, msg)
}

// ParseDocumentIngested 将 Watermill 消息解析为强类型 Envelope.
func ParseDocumentIngested(msg *message.Message) (Message[DocumentIngestedPayload], error) {
	return ParseWatermillMessage[DocumentIngestedPayload](msg)
}

// PublishDocumentArchived 发布 dv.document.archived 事件。
// 在热存储状态翻转事务提交之后调用。
func PublishDocumentArchived(pub message.Publisher, payload DocumentArchivedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDocumentArchived, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDocumentArchived, msg)
}

// ParseDocumentArchived 将 Watermill 消息解析为强类型 Envelope.
func ParseDocumentArchived(msg *message.Message) (Message[DocumentArchivedPayload], error) {
	return ParseWatermillMessage[DocumentArchivedPayload](msg)
}

// PublishModelRetrained 发布 dv.model.retrained 事件。
// 在两份模型制品均已原子落盘、快照热切换之后调用。
func PublishModelRetrained(pub message.Publisher, payload ModelRetrainedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicModelRetrained, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicModelRetrained, msg)
}

// ParseModelRetrained 将 Watermill 消息解析为强类型 Envelope.
func ParseModelRetrained(msg *message.Message) (Message[ModelRetrainedPayload], error) {
	return ParseWatermillMessage[ModelRetrainedPayload](msg)
}
