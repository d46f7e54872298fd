package protocol

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/hypertokens/tapmarket/contract"
)

// ChunkSize is the number of raw bytes carried per upload command, before
// base64. Log entries stay small enough to replicate cheaply.
const ChunkSize = 2048

// FileID derives the content address a file is minted under.
func FileID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MintFile mints a file for an owner and uploads its content in chunks.
// Interrupted uploads resume from the first chunk the state is missing,
// the mint itself is never repeated.
func (p *Protocol) MintFile(ctx context.Context, ownerAddress, filename string, data []byte) (string, error) {
	fileID := FileID(data)
	totalChunks := (len(data) + ChunkSize - 1) / ChunkSize

	raw, err := p.peer.StateGet(contract.FileMetaKey(fileID))
	if err != nil {
		return "", err
	}
	if raw == nil {
		mime := mimetype.Detect(data).String()
		if _, err := p.peer.Transact(ctx, map[string]any{
			"op": "operatorMint", "file_id": fileID, "filename": filename,
			"mime_type": mime, "total_chunks": totalChunks, "file_hash": fileID,
			"owner_address": ownerAddress,
		}); err != nil {
			return "", err
		}
	} else {
		var meta contract.FileMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return "", err
		}
		if meta.FileHash != fileID {
			return "", fmt.Errorf("file %s is minted with a different hash", fileID)
		}
		p.log.Info("resuming upload", zap.String("file", fileID))
	}

	start, err := p.firstMissingChunk(fileID, totalChunks)
	if err != nil {
		return "", err
	}
	for i := start; i < totalChunks; i++ {
		end := (i + 1) * ChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := base64.StdEncoding.EncodeToString(data[i*ChunkSize : end])
		if _, err := p.peer.Transact(ctx, map[string]any{
			"op": "upload_file_chunk", "file_id": fileID,
			"chunk_index": i, "chunk_data": chunk,
		}); err != nil {
			return "", fmt.Errorf("chunk %d of %s: %w", i, fileID, err)
		}
		if i < totalChunks-1 {
			if err := p.pause(ctx); err != nil {
				return "", err
			}
		}
	}
	return fileID, nil
}

func (p *Protocol) firstMissingChunk(fileID string, totalChunks int) (int, error) {
	for i := 0; i < totalChunks; i++ {
		raw, err := p.peer.StateGet(contract.FileChunkKey(fileID, i))
		if err != nil {
			return 0, err
		}
		if raw == nil {
			return i, nil
		}
	}
	return totalChunks, nil
}

func (p *Protocol) pause(ctx context.Context) error {
	if p.chunkPause <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.chunkPause):
		return nil
	}
}

// Download reassembles a file's content from its committed chunks.
func (p *Protocol) Download(fileID string) ([]byte, error) {
	raw, err := p.peer.StateGet(contract.FileMetaKey(fileID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("file %s is not minted", fileID)
	}
	var meta contract.FileMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}

	var data []byte
	for i := 0; i < meta.TotalChunks; i++ {
		raw, err := p.peer.StateGet(contract.FileChunkKey(fileID, i))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, fmt.Errorf("file %s is missing chunk %d", fileID, i)
		}
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		chunk, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("file %s chunk %d: %w", fileID, i, err)
		}
		data = append(data, chunk...)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// CreateCollection mints a banner image and a manifest document, then
// registers the collection referencing both. The manifest must declare its
// items up front, their count becomes the collection size.
func (p *Protocol) CreateCollection(ctx context.Context, name, description string, banner, manifest []byte) (string, error) {
	var doc struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(manifest, &doc); err != nil {
		return "", fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if doc.Items == nil {
		return "", fmt.Errorf("manifest has no items array")
	}

	self := p.peer.Wallet().Address()
	bannerID, err := p.MintFile(ctx, self, name+"-banner", banner)
	if err != nil {
		return "", err
	}
	manifestID, err := p.MintFile(ctx, self, name+"-manifest.json", manifest)
	if err != nil {
		return "", err
	}
	return p.peer.Transact(ctx, map[string]any{
		"op": "create_collection", "collection_name": name,
		"collection_description": description, "banner_file_id": bannerID,
		"manifest_file_id": manifestID, "collection_size": len(doc.Items),
	})
}

const batchProgressFile = ".mint_progress.json"

// BatchMint mints every image in a directory for an owner, skipping files
// that are not png or jpeg. Successes are recorded in a progress file next
// to the images so a rerun skips them, and individual failures never stop
// the batch.
func (p *Protocol) BatchMint(ctx context.Context, dir, ownerAddress string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	progress, err := readBatchProgress(dir)
	if err != nil {
		return 0, err
	}

	var minted int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
		default:
			continue
		}
		if _, done := progress[entry.Name()]; done {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			p.log.Error("batch mint read", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		fileID, err := p.MintFile(ctx, ownerAddress, entry.Name(), data)
		if err != nil {
			p.log.Error("batch mint", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		minted++
		progress[entry.Name()] = fileID
		if err := writeBatchProgress(dir, progress); err != nil {
			return minted, err
		}
		p.log.Info("minted", zap.String("file", entry.Name()),
			zap.String("id", fileID), zap.Int("done", minted))
	}
	return minted, nil
}

func readBatchProgress(dir string) (map[string]string, error) {
	progress := make(map[string]string)
	data, err := os.ReadFile(filepath.Join(dir, batchProgressFile))
	if os.IsNotExist(err) {
		return progress, nil
	} else if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", batchProgressFile, err)
	}
	return progress, nil
}

func writeBatchProgress(dir string, progress map[string]string) error {
	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, batchProgressFile), data, 0644)
}
