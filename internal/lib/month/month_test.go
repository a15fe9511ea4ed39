package month

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnd_TableTests(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "leap february",
			in:   time.Date(2024, time.February, 3, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			name: "regular february",
			in:   time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.February, 28, 23, 59, 59, 0, time.UTC),
		},
		{
			name: "last second of year",
			in:   time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name: "keeps location",
			in:   time.Date(2025, time.June, 15, 12, 0, 0, 0, time.FixedZone("ART", -3*3600)),
			want: time.Date(2025, time.June, 30, 23, 59, 59, 0, time.FixedZone("ART", -3*3600)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(End(tt.in)), "got %s", End(tt.in))
		})
	}
}

func TestNext_TableTests(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "middle of month",
			in:   time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC),
			want: time.Date(2024, time.February, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "december to january",
			in:   time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "day overflow",
			in:   time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.in))
		})
	}
}
