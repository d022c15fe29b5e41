// Package model 定义排班引擎的核心数据模型
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// 日期格式
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// 默认参数
const (
	DefaultRequiredPerResident = 2
	PrimaryPerPersonCap        = 2
	SecondaryPerPersonCap      = 1
)

// Status 排班结果状态
type Status string

const (
	StatusOK         Status = "ok"         // 得到可行方案（含部分满足）
	StatusInfeasible Status = "infeasible" // 无可行方案或总容量不足
	StatusError      Status = "error"      // 配置错误，未求解
)

// IsValid 检查状态值是否合法
func (s Status) IsValid() bool {
	switch s {
	case StatusOK, StatusInfeasible, StatusError:
		return true
	}
	return false
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}

// Value 实现 driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner
func (m *JSONMap) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("JSONMap 不支持的类型: %T", src)
	}
	return json.Unmarshal(data, m)
}
