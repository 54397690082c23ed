package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedCalendar_Today(t *testing.T) {
	cal := NewFixedCalendar(2024, time.February, 29)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), cal.Today())
	assert.Equal(t, cal.Today(), cal.Today(), "today never moves on its own")
}

func TestFixedCalendar_SetDropsTimeOfDay(t *testing.T) {
	cal := NewFixedCalendar(2020, time.January, 1)
	cal.Set(time.Date(2016, time.July, 28, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2016, time.July, 28, 0, 0, 0, 0, time.UTC), cal.Today())
}

func TestFixedCalendar_Advance(t *testing.T) {
	cal := NewFixedCalendar(2014, time.December, 4)
	cal.Advance(1)
	assert.Equal(t, 5, cal.Today().Day())
	cal.Advance(-10)
	assert.Equal(t, time.November, cal.Today().Month())
	assert.Equal(t, 25, cal.Today().Day())
}

func TestFixedCalendar_ConcurrentAccess(t *testing.T) {
	cal := NewFixedCalendar(2000, time.January, 1)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cal.Advance(1)
			_ = cal.Today()
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, goroutines), cal.Today())
}
