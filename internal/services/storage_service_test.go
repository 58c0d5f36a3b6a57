package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanFileSize(t *testing.T) {
	assert.Equal(t, "0.50 KB", HumanFileSize(512))
	assert.Equal(t, "1.00 KB", HumanFileSize(1024))
	assert.Equal(t, "1.00 MB", HumanFileSize(1024*1024))
	assert.Equal(t, "2.50 MB", HumanFileSize(5*1024*1024/2))
}
