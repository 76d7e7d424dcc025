package identity

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-TOKEN"

func rawInitData(t *testing.T, user User, authDate time.Time) string {
	t.Helper()
	b, err := json.Marshal(user)
	require.NoError(t, err)
	v := url.Values{}
	v.Set("query_id", "AAH-test")
	v.Set("user", string(b))
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	return SignInitData(v, testBotToken)
}

func TestHeaderValueShape(t *testing.T) {
	a := Assertion{
		User: User{ID: 42, FirstName: "Alex", LastName: "Petrov", Username: "alexp"},
		Hash: "query_id=1&hash=abc",
	}
	value, err := a.HeaderValue()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(value), &decoded))
	assert.Equal(t, float64(42), decoded["id"])
	assert.Equal(t, "Alex", decoded["first_name"])
	assert.Equal(t, "Petrov", decoded["last_name"])
	assert.Equal(t, "alexp", decoded["username"])
	assert.Equal(t, "query_id=1&hash=abc", decoded["hash"])

	back, err := ParseHeader(value)
	require.NoError(t, err)
	assert.Equal(t, a.User.ID, back.User.ID)
	assert.Equal(t, a.Hash, back.Hash)
}

func TestParseHeaderRejectsMissingID(t *testing.T) {
	_, err := ParseHeader(`{"first_name":"x"}`)
	assert.Error(t, err)
	_, err = ParseHeader(`not json`)
	assert.Error(t, err)
}

func TestAnonymousIsUnavailable(t *testing.T) {
	_, ok := Anonymous{}.Assertion(context.Background())
	assert.False(t, ok)
}

func TestInitDataSourceReadsFreshValue(t *testing.T) {
	current := rawInitData(t, User{ID: 1, FirstName: "A"}, time.Now())
	src := NewInitDataSource(func() string { return current })

	a, ok := src.Assertion(context.Background())
	require.True(t, ok)
	assert.Equal(t, int64(1), a.User.ID)
	assert.Equal(t, current, a.Hash)

	current = rawInitData(t, User{ID: 2, FirstName: "B"}, time.Now())
	a, ok = src.Assertion(context.Background())
	require.True(t, ok)
	assert.Equal(t, int64(2), a.User.ID)
}

func TestInitDataSourceUnavailable(t *testing.T) {
	for _, raw := range []string{"", "   ", "auth_date=1", "user=%7Bbroken", "%zz"} {
		src := NewInitDataSource(func() string { return raw })
		_, ok := src.Assertion(context.Background())
		assert.False(t, ok, "raw=%q", raw)
	}

	var nilSrc *InitDataSource
	_, ok := nilSrc.Assertion(context.Background())
	assert.False(t, ok)
}

func TestVerifyInitData(t *testing.T) {
	now := time.Now()
	raw := rawInitData(t, User{ID: 7, FirstName: "Vera"}, now.Add(-time.Minute))

	assert.NoError(t, VerifyInitData(raw, testBotToken, time.Hour, now))
	assert.ErrorIs(t, VerifyInitData(raw, "other-token", time.Hour, now), ErrSignatureMismatch)
	assert.ErrorIs(t, VerifyInitData(raw, testBotToken, time.Second, now), ErrExpired)
	assert.NoError(t, VerifyInitData(raw, testBotToken, 0, now.Add(48*time.Hour)))

	assert.ErrorIs(t, VerifyInitData("auth_date=1", testBotToken, 0, now), ErrMissingHash)
}

func TestVerifyInitDataDetectsTampering(t *testing.T) {
	raw := rawInitData(t, User{ID: 7, FirstName: "Vera"}, time.Now())
	v, err := url.ParseQuery(raw)
	require.NoError(t, err)
	v.Set("user", `{"id":8,"first_name":"Mallory"}`)
	assert.ErrorIs(t, VerifyInitData(v.Encode(), testBotToken, 0, time.Now()), ErrSignatureMismatch)
}
