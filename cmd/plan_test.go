package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"cardsync/core/assets"
	"cardsync/core/catalog"
	"cardsync/core/reconcile"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *reconcile.Plan {
	key := catalog.Key{Number: "hSD01-001"}
	return &reconcile.Plan{
		Items: []reconcile.WorkItem{
			{Asset: assets.ID{Key: key, Locale: catalog.LocaleNative, Format: catalog.FormatWebP}, Action: reconcile.ActionSkip, Reason: "verified", State: assets.StateVerified, Source: "https://img/1.png"},
			{Asset: assets.ID{Key: catalog.Key{Number: "hSD01-002"}, Locale: catalog.LocaleNative, Format: catalog.FormatWebP}, Action: reconcile.ActionRefetch, Reason: "missing", State: assets.StateMissing, Source: "https://img/2.png"},
		},
		Summary: reconcile.PlanSummary{Cards: 2, Total: 2, Skip: 1, Refetch: 1},
	}
}

func TestWritePlan_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePlan(&buf, samplePlan(), "table", false))

	out := buf.String()
	assert.Contains(t, out, "hSD01-002#0")
	assert.NotContains(t, out, "hSD01-001#0")
	assert.Contains(t, out, "2 cards, 2 assets: 1 skip, 1 refetch, 0 convert-only")

	buf.Reset()
	require.NoError(t, writePlan(&buf, samplePlan(), "table", true))
	assert.Contains(t, buf.String(), "hSD01-001#0")
}

func TestWritePlan_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePlan(&buf, samplePlan(), "json", false))

	var got reconcile.Plan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Summary.Refetch)
	assert.Len(t, got.Items, 2)
}

func TestWritePlan_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePlan(&buf, samplePlan(), "yaml", false))

	var got struct {
		Summary struct {
			Refetch int `yaml:"refetch"`
		} `yaml:"summary"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Summary.Refetch)
}

func TestWritePlan_UnknownFormat(t *testing.T) {
	err := writePlan(&bytes.Buffer{}, samplePlan(), "xml", false)
	assert.Error(t, err)
}
