package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paiban/dutyplan/internal/config"
)

// readFile 读取 JSON/YAML/TOML 文件，"-" 表示标准输入（按 JSON 解析）
func readFile(path string, stdin io.Reader, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if path == "-" || ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("解析 %s 失败: %w", path, err)
		}
		return nil
	}
	return config.Decode(path, data, v)
}

// writeJSON 输出缩进JSON，path 为空时写入 w
func writeJSON(path string, w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
