package csvstream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/csvstream"
)

func TestEncodeLine(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		fields    []string
		delimiter rune
		enclosure rune
		escape    rune
		want      string
	}{
		"plain": {
			fields: []string{"a", "b", "c"},
			want:   "a,b,c\n",
		},
		"no fields": {
			fields: nil,
			want:   "\n",
		},
		"empty fields": {
			fields: []string{"", ""},
			want:   ",\n",
		},
		"delimiter forces enclosure": {
			fields: []string{"a,b", "c"},
			want:   "\"a,b\",c\n",
		},
		"enclosure doubled": {
			fields: []string{`say "hi"`},
			want:   "\"say \"\"hi\"\"\"\n",
		},
		"line feed forces enclosure": {
			fields: []string{"multi\nline", "z"},
			want:   "\"multi\nline\",z\n",
		},
		"carriage return forces enclosure": {
			fields: []string{"cr\r"},
			want:   "\"cr\r\"\n",
		},
		"space stays bare": {
			fields: []string{" padded "},
			want:   " padded \n",
		},
		"escape protects enclosure": {
			fields: []string{`x'"y`},
			escape: '\'',
			want:   "\"x'\"y\"\n",
		},
		"escape without enclosure is literal": {
			fields: []string{"it's"},
			escape: '\'',
			want:   "it's\n",
		},
		"escape only affects next character": {
			fields: []string{`'a"`},
			escape: '\'',
			want:   "\"'a\"\"\"\n",
		},
		"no escape doubles": {
			fields: []string{`x'"y`},
			want:   "\"x'\"\"y\"\n",
		},
		"backslash escape": {
			fields: []string{`c:\"dir"`},
			escape: '\\',
			want:   "\"c:\\\"dir\"\"\"\n",
		},
		"escape equal to enclosure is ignored": {
			fields:    []string{"a;b", "it's"},
			delimiter: ';',
			enclosure: '\'',
			escape:    '\'',
			want:      "'a;b';'it''s'\n",
		},
		"tab delimiter": {
			fields:    []string{"a\tb", "c"},
			delimiter: '\t',
			want:      "\"a\tb\"\tc\n",
		},
		"multibyte delimiter": {
			fields:    []string{"a", "b→c"},
			delimiter: '→',
			want:      "a→\"b→c\"\n",
		},
		"unicode content": {
			fields: []string{"日本", "naïve"},
			want:   "日本,naïve\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			delimiter, enclosure := tc.delimiter, tc.enclosure
			if delimiter == 0 {
				delimiter = ','
			}
			if enclosure == 0 {
				enclosure = '"'
			}
			got := csvstream.EncodeLine(tc.fields, delimiter, enclosure, tc.escape)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestAppendLine(t *testing.T) {
	t.Parallel()
	dst := []byte("a,b\n")
	dst = csvstream.AppendLine(dst, []string{"c", "d"}, ',', '"', 0)
	assert.Equal(t, "a,b\nc,d\n", string(dst))
}
