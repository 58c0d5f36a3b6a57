package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"

	"skillswap-service/internal/database"
)

// StorageService uploads chat attachments to the object store. The blob is
// durable before any file-uploaded notification reaches the room.
type StorageService struct {
	store *database.MinIOClient
}

func NewStorageService(store *database.MinIOClient) *StorageService {
	return &StorageService{store: store}
}

// UploadChatFile streams one multipart file under the room's prefix and
// returns the public URL.
func (s *StorageService) UploadChatFile(ctx context.Context, roomID string, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	objectName := fmt.Sprintf("rooms/%s/%s-%s", roomID, uuid.New().String(), file.Filename)
	return s.store.PutObject(ctx, objectName, src, file.Size, file.Header.Get("Content-Type"))
}

// HumanFileSize formats a byte count the way the chat UI displays it.
func HumanFileSize(size int64) string {
	const mb = 1024 * 1024
	if size < mb {
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/mb)
}
