package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "sentences split", in: "Ez çûm malê. Tu li kû yî.", want: "Ez çûm malê.\nTu li kû yî."},
		{name: "symbols dropped", in: "Roj (baş) #heval! 100%", want: "Roj baş heval 100"},
		{name: "newlines flattened", in: "yek\ndu\n\n  sê", want: "yek du sê"},
		{name: "ellipsis kept inline", in: "Belê... Na. Erê", want: "Belê... Na.\nErê"},
		{name: "apostrophe and comma kept", in: "Ew got, 'erê'", want: "Ew got, 'erê'"},
		{name: "digits and underscore kept", in: "snake_case 42.", want: "snake_case 42."},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}
