package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"habit-tracker/model"
)

// Persister 整体读写一份 Record 的存储后端
type Persister interface {
	Load(ctx context.Context) (*model.Record, error)
	Save(ctx context.Context, r *model.Record) error
	String() string
}

// FilePersister 将 Record 保存为单个 JSON 文件
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Path() string { return p.path }

func (p *FilePersister) String() string { return "json:" + p.path }

// Load 读取并解析 JSON 文件
func (p *FilePersister) Load(ctx context.Context) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}
	var r model.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p.path, err)
	}
	return &r, nil
}

// Save 以缩进格式写入，非 ASCII 字符原样保留；先写临时文件再重命名覆盖
func (p *FilePersister) Save(ctx context.Context, r *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", p.path, err)
	}
	return nil
}
