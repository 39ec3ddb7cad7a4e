package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_Ordering(t *testing.T) {
	a := NewDate(2024, time.March, 1)
	b := NewDate(2024, time.March, 10)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(NewDate(2024, 3, 1)))
	assert.True(t, NewDate(2023, 12, 31).Before(NewDate(2024, 1, 1)))
}

func TestDate_AddDaysAndNights(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, NewDate(2024, time.February, 29), d.AddDays(1))
	assert.Equal(t, NewDate(2024, time.March, 1), d.AddDays(2))
	assert.Equal(t, NewDate(2024, time.February, 27), d.AddDays(-1))
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))

	b := Booking{StartDate: NewDate(2024, 3, 1), EndDate: NewDate(2024, 3, 10)}
	assert.Equal(t, 9, b.Nights())
}

func TestDate_DateOfIgnoresClock(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	early := time.Date(2024, 3, 1, 5, 30, 0, 0, loc)
	assert.Equal(t, NewDate(2024, 3, 1), DateOf(early))
	assert.Equal(t, NewDate(2024, 2, 29), DateOf(early.UTC()))
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Start Date `json:"startDate"`
		End   Date `json:"endDate"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"startDate":"2024-03-01","endDate":null}`), &payload))
	assert.Equal(t, NewDate(2024, 3, 1), payload.Start)
	assert.True(t, payload.End.IsZero())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"startDate":"2024-03-01","endDate":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"startDate":"03/01/2024"}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"startDate":20240301}`), &payload))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-03-05"))
	assert.Equal(t, NewDate(2024, 3, 5), d)

	require.NoError(t, d.Scan([]byte("2024-03-06T00:00:00Z")))
	assert.Equal(t, NewDate(2024, 3, 6), d)

	require.NoError(t, d.Scan(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2024, 3, 7), d)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := NewDate(2024, 3, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", v)
}

func TestBooking_Dates(t *testing.T) {
	b := &Booking{ID: 7, SpotID: 3, UserID: 9, StartDate: NewDate(2024, 3, 1), EndDate: NewDate(2024, 3, 4)}
	out, err := json.Marshal(b.Dates())
	require.NoError(t, err)
	assert.JSONEq(t, `{"spotId":3,"startDate":"2024-03-01","endDate":"2024-03-04"}`, string(out))
}

func TestChatState(t *testing.T) {
	var nilState *ChatState
	assert.Equal(t, "", nilState.Get("x"))

	s := &ChatState{ChatID: 1}
	s.Set("username", "host")
	assert.Equal(t, "host", s.Get("username"))
	assert.Equal(t, "", s.Get("missing"))
}
