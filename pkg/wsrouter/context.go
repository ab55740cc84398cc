package wsrouter

import "context"

type ctxKey string

const messageTypeKey ctxKey = "message_type"

func withMessageType(ctx context.Context, messageType string) context.Context {
	return context.WithValue(ctx, messageTypeKey, messageType)
}

func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, _ := ctx.Value(messageTypeKey).(string)
	return messageType
}
