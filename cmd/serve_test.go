package cmd

import "testing"

func TestServeReferenceRoot(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		configured string
		want       string
	}{
		{name: "未指定ならカレントディレクトリ", want: "."},
		{name: "設定ファイルの値", configured: "/srv/refs", want: "/srv/refs"},
		{name: "フラグが優先", flag: "/mnt/refs", configured: "/srv/refs", want: "/mnt/refs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := serveReferenceDir
			t.Cleanup(func() { serveReferenceDir = prev })
			serveReferenceDir = tt.flag

			if got := serveReferenceRoot(tt.configured); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
