package mrs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDosTimeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "even seconds are exact",
			in:   time.Date(2007, time.March, 15, 13, 37, 42, 0, time.Local),
			want: time.Date(2007, time.March, 15, 13, 37, 42, 0, time.Local),
		},
		{
			name: "odd seconds round down",
			in:   time.Date(2024, time.December, 31, 23, 59, 59, 0, time.Local),
			want: time.Date(2024, time.December, 31, 23, 59, 58, 0, time.Local),
		},
		{
			name: "epoch base year",
			in:   time.Date(1980, time.January, 1, 0, 0, 0, 0, time.Local),
			want: time.Date(1980, time.January, 1, 0, 0, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDosTime(tt.in).Value()
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestDosTimePacking(t *testing.T) {
	d := NewDosTime(time.Date(2002, time.June, 5, 17, 30, 8, 0, time.Local))

	// 8/2 | 30<<5 | 17<<11
	assert.Equal(t, uint16(4|30<<5|17<<11), d.Time)
	// 5 | 6<<5 | 22<<9
	assert.Equal(t, uint16(5|6<<5|22<<9), d.Date)
}
