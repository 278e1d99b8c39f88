package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecimalAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		Price    Decimal `json:"price"`
		Quantity Decimal `json:"quantity"`
		Missing  Decimal `json:"missing"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"price": 1500.50, "quantity": " 12 ", "missing": null}`), &payload))
	require.Equal(t, Decimal("1500.50"), payload.Price)
	require.Equal(t, Decimal("12"), payload.Quantity)
	require.True(t, payload.Missing.IsZero())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"price":"1500.50","quantity":"12","missing":""}`, string(out))
}

func TestDecimalRejectsObjects(t *testing.T) {
	var d Decimal
	require.Error(t, json.Unmarshal([]byte(`{"v":1}`), &d))
}

func TestCatalogTableNames(t *testing.T) {
	require.Equal(t, "t_screw", Fastener{}.TableName())
	require.Equal(t, "t_screw_type", FastenerType{}.TableName())
	require.Equal(t, "t_screw_material", Material{}.TableName())
	require.Equal(t, "t_screw_size", Size{}.TableName())
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	require.True(t, CacheEntry{ExpiresAt: now.Add(-time.Second)}.Expired(now))
	require.True(t, CacheEntry{ExpiresAt: now}.Expired(now))
	require.False(t, CacheEntry{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	require.False(t, CacheEntry{}.Expired(now))
}
