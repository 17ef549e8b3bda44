package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "gw2bot/internal/transport"
)

func TestParseCallbackData(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw, unique, data string
	}{
		{raw: "\funsub|1b4e28ba-2fa1-11d2-883f-0016d3cca427", unique: "unsub", data: "1b4e28ba-2fa1-11d2-883f-0016d3cca427"},
		{raw: "\funsub", unique: "unsub", data: ""},
		{raw: "plain", unique: "", data: "plain"},
	}
	for _, tc := range cases {
		u, d := parseCallbackData(tc.raw)
		assert.Equal(t, tc.unique, u, tc.raw)
		assert.Equal(t, tc.data, d, tc.raw)
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"short"}, splitText("short", 10))

	body := strings.Repeat("line of text\n", 10)
	chunks := splitText(body, 40)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 40)
		assert.False(t, strings.HasSuffix(c, "\n"))
	}
	assert.Equal(t, strings.TrimRight(body, "\n"), strings.Join(chunks, "\n"))
}

func TestInlineMarkup(t *testing.T) {
	t.Parallel()

	assert.Nil(t, inlineMarkup(nil))

	rm := inlineMarkup([]kit.Action{{Label: "Unsubscribe", Unique: "unsub", Data: "abc"}})
	require.NotNil(t, rm)
	require.Len(t, rm.InlineKeyboard, 1)
	require.Len(t, rm.InlineKeyboard[0], 1)
	btn := rm.InlineKeyboard[0][0]
	assert.Equal(t, "Unsubscribe", btn.Text)
	assert.Equal(t, "unsub", btn.Unique)
	assert.True(t, strings.HasSuffix(btn.Data, "abc"), btn.Data)
}
