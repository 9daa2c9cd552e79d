package redis

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/multivec/internal/db"
	"github.com/kailas-cloud/multivec/internal/domain/search/filter"
)

func f64(v float64) *float64 { return &v }

func mustMatch(t *testing.T, key, value string) filter.Condition {
	t.Helper()
	c, err := filter.NewMatch(key, value)
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	return c
}

func mustRange(t *testing.T, key string, gte, lte *float64) filter.Condition {
	t.Helper()
	r, err := filter.NewRangeFilter(gte, lte)
	if err != nil {
		t.Fatalf("new range filter: %v", err)
	}
	c, err := filter.NewRange(key, r)
	if err != nil {
		t.Fatalf("new range: %v", err)
	}
	return c
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name string
		expr func(t *testing.T) filter.Expression
		want string
	}{
		{
			"empty",
			func(_ *testing.T) filter.Expression { return filter.Expression{} },
			"",
		},
		{
			"single tag match",
			func(t *testing.T) filter.Expression {
				e, _ := filter.NewExpression([]filter.Condition{mustMatch(t, "doc_id", "atlas")}, nil)
				return e
			},
			"@doc_id:{atlas}",
		},
		{
			"tag match escapes specials",
			func(t *testing.T) filter.Expression {
				e, _ := filter.NewExpression([]filter.Condition{mustMatch(t, "filename", "q3 report-v2.pdf")}, nil)
				return e
			},
			`@filename:{q3\ report\-v2\.pdf}`,
		},
		{
			"numeric range both bounds",
			func(t *testing.T) filter.Expression {
				e, _ := filter.NewExpression([]filter.Condition{mustRange(t, "page", f64(2), f64(9))}, nil)
				return e
			},
			"@page:[2 9]",
		},
		{
			"numeric range gte only",
			func(t *testing.T) filter.Expression {
				e, _ := filter.NewExpression([]filter.Condition{mustRange(t, "created_at", f64(1700000000000), nil)}, nil)
				return e
			},
			"@created_at:[1.7e+12 +inf]",
		},
		{
			"must_not is negated",
			func(t *testing.T) filter.Expression {
				e, _ := filter.NewExpression(nil, []filter.Condition{mustMatch(t, "doc_id", "atlas")})
				return e
			},
			"-@doc_id:{atlas}",
		},
		{
			"must and must_not combined",
			func(t *testing.T) filter.Expression {
				e, _ := filter.NewExpression(
					[]filter.Condition{mustMatch(t, "filename", "atlas.pdf"), mustRange(t, "page", f64(1), f64(5))},
					[]filter.Condition{mustMatch(t, "doc_id", "draft")},
				)
				return e
			},
			`@filename:{atlas\.pdf} @page:[1 5] -@doc_id:{draft}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildFilter(tc.expr(t)); got != tc.want {
				t.Errorf("buildFilter:\ngot:  %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestBuildKNNArgs(t *testing.T) {
	vec := []float32{1, 0}

	t.Run("filtered with return fields", func(t *testing.T) {
		expr, err := filter.NewExpression([]filter.Condition{mustMatch(t, "doc_id", "atlas")}, nil)
		if err != nil {
			t.Fatalf("new expression: %v", err)
		}
		got := buildKNNArgs(&db.KNNQuery{
			IndexName:    "mv:visual:idx",
			Vector:       vec,
			K:            100,
			Filters:      expr,
			ReturnFields: []string{"doc_id", "filename"},
		})
		want := []string{
			"mv:visual:idx",
			"(@doc_id:{atlas})=>[KNN 100 @__vector $BLOB AS __vector_score]",
			"RETURN", "3", "__vector_score", "doc_id", "filename",
			"SORTBY", "__vector_score",
			"LIMIT", "0", "100",
			"PARAMS", "2", "BLOB", vectorToBytes(vec),
			"DIALECT", "2",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("args:\ngot:  %q\nwant: %q", got, want)
		}
	})

	t.Run("unfiltered limits to k", func(t *testing.T) {
		got := buildKNNArgs(&db.KNNQuery{IndexName: "mv:text:idx", Vector: vec, K: 25})
		want := []string{
			"mv:text:idx",
			"*=>[KNN 25 @__vector $BLOB AS __vector_score]",
			"SORTBY", "__vector_score",
			"LIMIT", "0", "25",
			"PARAMS", "2", "BLOB", vectorToBytes(vec),
			"DIALECT", "2",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("args:\ngot:  %q\nwant: %q", got, want)
		}
	})
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.5, -2.25, 0}
	got := vectorToBytes(v)

	if len(got) != 12 {
		t.Fatalf("length = %d, want 12", len(got))
	}
	for i, f := range v {
		bits := binary.LittleEndian.Uint32([]byte(got)[i*4:])
		if math.Float32frombits(bits) != f {
			t.Errorf("value %d = %v, want %v", i, math.Float32frombits(bits), f)
		}
	}
}
