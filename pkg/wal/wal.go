package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀)
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 帳務資料預設用這個
	FileModePrivate fs.FileMode = 0600
)

// ErrTornTail 檔案最後一筆紀錄不完整 (寫到一半當機)
var ErrTornTail = errors.New("wal: torn record at tail")

// WAL 是一個 JSON Lines 格式的 Write-Ahead Log
// Write 只寫入記憶體 buffer，Flush 才會刷入硬碟
type WAL struct {
	file *os.File
	buf  *bufio.Writer
	mu   sync.Mutex
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_APPEND 每次寫入時自動跳到文件末尾
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &WAL{
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// Write 寫入一筆資料到 buffer
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return json.NewEncoder(w.buf).Encode(v)
}

// Flush 把 buffer 寫入檔案並強制刷入硬碟
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close 刷入剩餘資料後關閉檔案
func (w *WAL) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// ReadAll 依序讀取所有紀錄
// callback 每次收到一筆原始 JSON，避免一次將所有資料載入記憶體
// 最後一筆不完整時回傳 ErrTornTail，前面的紀錄都已交給 callback
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		return err
	}
	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrTornTail
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}
