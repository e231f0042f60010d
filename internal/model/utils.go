package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// TruncateString cắt chuỗi xuống độ dài tối đa cho phép
// nếu chuỗi dài hơn giới hạn
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength]
}

// RecordKey identifies one file under one selection policy.
func RecordKey(mode, repoName, filePath string) string {
	sum := sha256.Sum256([]byte(mode + "\x00" + repoName + "\x00" + filePath))
	return hex.EncodeToString(sum[:])
}
