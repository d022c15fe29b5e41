package capacity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/dutyplan/pkg/calendar"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		kind    KeyKind
		wantErr bool
	}{
		{name: "周一", key: "0", kind: KeyWeekday},
		{name: "周日", key: "6", kind: KeyWeekday},
		{name: "日期", key: "2025-04-01", kind: KeyDate},
		{name: "星期越界", key: "7", wantErr: true},
		{name: "非法日期", key: "2025-04-31", wantErr: true},
		{name: "英文星期", key: "Mon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, k.Kind)
		})
	}
}

func TestValidate(t *testing.T) {
	err := Validate(map[string]map[string]int{
		"A": {"0": 1, "2025-04-01": 2},
	})
	assert.NoError(t, err)

	err = Validate(map[string]map[string]int{
		"A": {"9": 1},
		"B": {"0": -1},
	})
	require.Error(t, err)

	var cfgErrs ConfigErrors
	require.True(t, errors.As(err, &cfgErrs))
	assert.Len(t, cfgErrs, 2)
	assert.Equal(t, "A", cfgErrs[0].Facility)
	assert.Equal(t, "B", cfgErrs[1].Facility)
}

func TestResolver_CapacityPrecedence(t *testing.T) {
	r, err := NewResolver(map[string]map[string]int{
		"A": {
			"1":          3, // 周二
			"2025-04-08": 1, // 周二，日期键优先
		},
	})
	require.NoError(t, err)

	m, err := calendar.ParseMonth("2025-04")
	require.NoError(t, err)
	days := m.Days()

	// 2025-04-01 周二
	assert.Equal(t, 3, r.Capacity("A", days[0]))
	// 2025-04-08 周二，日期键覆盖
	assert.Equal(t, 1, r.Capacity("A", days[7]))
	// 2025-04-02 周三无配置
	assert.Equal(t, 0, r.Capacity("A", days[1]))
	// 未知医院
	assert.Equal(t, 0, r.Capacity("Z", days[0]))
}

func TestResolver_Grid(t *testing.T) {
	r, err := NewResolver(map[string]map[string]int{
		"A": {"2025-04-01": 1, "2025-04-02": 1},
		"B": {"2025-04-01": 2},
	})
	require.NoError(t, err)

	m, _ := calendar.ParseMonth("2025-04")
	g := r.Grid(m.Days(), []string{"A", "B"})

	assert.Equal(t, 4, g.Total())
	assert.Equal(t, 3, g.DateTotal(0))
	assert.Equal(t, 1, g.DateTotal(1))
	assert.Equal(t, 0, g.DateTotal(2))
	assert.Equal(t, 2, g.At(0, 1))
	assert.Equal(t, 1, g.FacilityIndex("B"))
	assert.Equal(t, -1, g.FacilityIndex("C"))
	assert.Equal(t, 1, g.DayIndex("2025-04-02"))
}

func TestResolver_OutOfMonthKeys(t *testing.T) {
	r, err := NewResolver(map[string]map[string]int{
		"A": {"2025-05-01": 1, "2025-04-01": 1, "0": 1},
	})
	require.NoError(t, err)

	m, _ := calendar.ParseMonth("2025-04")
	assert.Equal(t, []string{"A/2025-05-01"}, r.OutOfMonthKeys(m))
}
