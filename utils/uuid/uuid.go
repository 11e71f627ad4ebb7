package uuid

import (
	"strings"

	"github.com/google/uuid"
)

// GenUUID 生成一个不带连字符的uuid
func GenUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenUUID16 生成16位的短id，用于request_id等场景
func GenUUID16() string {
	return GenUUID()[:16]
}
