package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowContains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		w    Window
		hour int
		want bool
	}{
		{"plain inside", Window{8, 12}, 9, true},
		{"plain start inclusive", Window{8, 12}, 8, true},
		{"plain end exclusive", Window{8, 12}, 12, false},
		{"plain before", Window{8, 12}, 7, false},
		{"to midnight", Window{19, 24}, 23, true},
		{"to midnight excludes zero", Window{19, 24}, 0, false},
		{"wrap late", Window{19, 4}, 23, true},
		{"wrap early", Window{19, 4}, 3, true},
		{"wrap end exclusive", Window{19, 4}, 4, false},
		{"wrap outside", Window{19, 4}, 10, false},
		{"equal bounds is all day", Window{5, 5}, 17, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.w.Contains(tt.hour))
		})
	}
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{19, 24}.Validate())
	assert.NoError(t, Window{0, 4}.Validate())
	assert.Error(t, Window{-1, 4}.Validate())
	assert.Error(t, Window{24, 4}.Validate())
	assert.Error(t, Window{3, 25}.Validate())
}

func TestSymbolInWindow(t *testing.T) {
	s := Symbol{Name: "NZDUSD", Windows: []Window{{19, 24}, {0, 4}, {8, 12}}}

	assert.True(t, s.InWindow(20))
	assert.True(t, s.InWindow(2))
	assert.True(t, s.InWindow(11))
	assert.False(t, s.InWindow(5))
	assert.False(t, s.InWindow(15))
}
