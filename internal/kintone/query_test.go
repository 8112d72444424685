package kintone

import "testing"

func TestQueryString(t *testing.T) {
	tests := []struct {
		name  string
		query *Query
		want  string
	}{
		{name: "empty", query: NewQuery(), want: ""},
		{name: "limit only", query: NewQuery().Limit(5), want: "limit 5"},
		{
			name:  "eq order limit",
			query: NewQuery().Where(Eq("companyId", "C-1")).OrderBy("作成日時", true).Limit(100),
			want:  `companyId = "C-1" order by 作成日時 desc limit 100`,
		},
		{
			name: "or and not in",
			query: NewQuery().
				Where(Eq("companyId", "C-1")).
				Where(Or(Eq("uploadFlag", "済"), Eq("uploadFlag", ""))).
				Where(NotIn("unitPriceFlag", "済")).
				OrderBy("レコード番号", true).
				Limit(50),
			want: `companyId = "C-1" and (uploadFlag = "済" or uploadFlag = "") and unitPriceFlag not in ("済") order by レコード番号 desc limit 50`,
		},
		{name: "blank condition ignored", query: NewQuery().Where("  ").Where(Eq("a", "b")), want: `a = "b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.String(); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteEscapes(t *testing.T) {
	if got := Eq("uId", `a"b\c`); got != `uId = "a\"b\\c"` {
		t.Fatalf("unexpected escaped condition %q", got)
	}
}
