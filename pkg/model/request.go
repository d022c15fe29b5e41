package model

// Request 月度排班请求
type Request struct {
	Residents []Resident `json:"residents" yaml:"residents" toml:"residents" validate:"dive"`
	Month     string     `json:"month" yaml:"month" toml:"month" validate:"required"`
	// FacilityConfig 医院 -> (日期或星期键 -> 容量)
	FacilityConfig map[string]map[string]int `json:"facilityConfig" yaml:"facilityConfig" toml:"facilityConfig"`
	// FacilityOrder 结果中医院的顺序，缺省按名称排序
	FacilityOrder []string `json:"facilityOrder,omitempty" yaml:"facilityOrder,omitempty" toml:"facilityOrder,omitempty"`
	// DefaultRequiredPerResident 缺省为引擎配置值（2）
	DefaultRequiredPerResident *int   `json:"defaultRequiredPerResident,omitempty" yaml:"defaultRequiredPerResident,omitempty" toml:"defaultRequiredPerResident,omitempty" validate:"omitempty,min=0"`
	PrimaryFacilityName        string `json:"primaryFacilityName" yaml:"primaryFacilityName" toml:"primaryFacilityName"`
}

// AggregateRequest 不按日期的汇总排班请求（等式模式）
type AggregateRequest struct {
	Residents []string `json:"residents" yaml:"residents" toml:"residents" validate:"required,dive,required"`
	// FacilitySlots 医院 -> 当月总名额
	FacilitySlots       map[string]int `json:"facilitySlots" yaml:"facilitySlots" toml:"facilitySlots" validate:"required,dive,min=0"`
	FacilityOrder       []string       `json:"facilityOrder,omitempty" yaml:"facilityOrder,omitempty" toml:"facilityOrder,omitempty"`
	PerResident         *int           `json:"perResident,omitempty" yaml:"perResident,omitempty" toml:"perResident,omitempty" validate:"omitempty,min=0"`
	PrimaryFacilityName string         `json:"primaryFacilityName" yaml:"primaryFacilityName" toml:"primaryFacilityName"`
}
