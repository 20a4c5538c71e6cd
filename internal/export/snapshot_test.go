package export

import (
	"bytes"
	"strings"
	"testing"

	"agility-scorer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	st := sampleState()
	snap := NewSnapshot(st, Scope{}, exportDate)

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, snap))
	assert.Contains(t, buf.String(), `"courseTimeConfig"`)
	assert.Contains(t, buf.String(), `"exportDate": "2026-06-14T15:30:00Z"`)

	parsed, err := ParseSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, st.Competitors, parsed.Competitors)
	assert.Equal(t, st.Rounds, parsed.Rounds)
	assert.Equal(t, st.CourseTimes, parsed.CourseTimeConfig)
	assert.True(t, exportDate.Equal(parsed.ExportDate))
}

func TestSnapshot_Scoped(t *testing.T) {
	snap := NewSnapshot(sampleState(), Scope{RoundID: "r1", Size: domain.SizeLarge}, exportDate)
	assert.Len(t, snap.Rounds, 1)
	assert.Len(t, snap.Competitors, 4)
	assert.Len(t, snap.CourseTimeConfig, 1)
}

func TestParseSnapshot_Rejects(t *testing.T) {
	cases := map[string]string{
		"malformed":          `{"competitors": [`,
		"unknown round":      `{"rounds":[],"competitors":[{"id":"a","round_id":"r9","size":"S"}]}`,
		"duplicate id":       `{"rounds":[{"id":"r1","name":"A"}],"competitors":[{"id":"a","round_id":"r1","size":"S"},{"id":"a","round_id":"r1","size":"S"}]}`,
		"bad size":           `{"rounds":[{"id":"r1","name":"A"}],"competitors":[{"id":"a","round_id":"r1","size":"XL"}]}`,
		"negative faults":    `{"rounds":[{"id":"r1","name":"A"}],"competitors":[{"id":"a","round_id":"r1","size":"S","course_faults":-5}]}`,
		"bad course time":    `{"rounds":[{"id":"r1","name":"A"}],"courseTimeConfig":{"r1":{"sct":50,"mct":40}}}`,
		"orphan course time": `{"rounds":[{"id":"r1","name":"A"}],"courseTimeConfig":{"r2":{"sct":50,"mct":60}}}`,
		"duplicate names":    `{"rounds":[{"id":"r1","name":"A"},{"id":"r2","name":"a"}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSnapshot(strings.NewReader(payload))
			assert.ErrorIs(t, err, domain.ErrInvalidImport)
		})
	}
}
