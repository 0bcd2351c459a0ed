package log

import (
	"encoding/hex"

	"go.uber.org/zap/zapcore"
)

type byteString struct {
	val []byte
}

func (b byteString) String() string {
	return hex.EncodeToString(b.val)
}

// ByteString construct zapcore.Field that caries hex encoded data as []byte.
func ByteString(key string, val []byte) zapcore.Field {
	return zapcore.Field{Key: key, Type: zapcore.StringerType, Interface: byteString{val}}
}
