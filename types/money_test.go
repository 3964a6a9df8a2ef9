package types

import (
	"encoding/json"
	"testing"
)

func TestNewFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0.005", "0.005", false},
		{"100", "100", false},
		{"-49.99", "-49.99", false},
		{"0", "0", false},
		{"not-a-number", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NewFromString(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error parsing %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromString(%q): %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestDecimalArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Decimal
		expected string
	}{
		{"Add", func() Decimal { return MustFromString("1.00").Add(MustFromString("2.00")) }, "3"},
		{"Sub", func() Decimal { return MustFromString("5.00").Sub(MustFromString("2.00")) }, "3"},
		{"Mul", func() Decimal { return MustFromString("1.50").Mul(MustFromString("2")) }, "3.00"},
		{"MulInt64", func() Decimal { return MustFromString("1.5").MulInt64(3) }, "4.5"},
		{"Div", func() Decimal { return MustFromString("9").Div(MustFromString("3")) }, "3"},
		{"DivInt64", func() Decimal { return MustFromString("9").DivInt64(3) }, "3"},
		{"Negate", func() Decimal { return MustFromString("1").Negate() }, "-1"},
		{"Abs positive", func() Decimal { return MustFromString("1").Abs() }, "1"},
		{"Abs negative", func() Decimal { return MustFromString("-1").Abs() }, "1"},
		{"Pricing example", func() Decimal {
			// 1000 prompt tokens @ 2.0/M + 500 completion tokens @ 6.0/M
			prompt := MustFromString("2.0").MulInt64(1000).DivInt64(1000000)
			completion := MustFromString("6.0").MulInt64(500).DivInt64(1000000)
			return prompt.Add(completion)
		}, "0.005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op().String()
			if got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestDecimalDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for division by zero")
		}
	}()
	_ = MustFromString("100").Div(Zero)
}

func TestDecimalComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Decimal
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", MustFromString("1"), MustFromString("1"), false, false, true},
		{"Less", MustFromString("0.5"), MustFromString("1"), true, false, false},
		{"Greater", MustFromString("2"), MustFromString("1"), false, true, false},
		{"Zero equal", MustFromString("0"), Zero, false, false, true},
		{"Negative less", MustFromString("-1"), MustFromString("1"), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestDecimalMinMax(t *testing.T) {
	a := MustFromString("0.5")
	b := MustFromString("1")

	if min := a.Min(b); !min.Equal(a) {
		t.Errorf("Min: got %v, want %v", min, a)
	}
	if max := a.Max(b); !max.Equal(b) {
		t.Errorf("Max: got %v, want %v", max, b)
	}
}

func TestDecimalPredicates(t *testing.T) {
	tests := []struct {
		name       string
		d          Decimal
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", Zero, true, false, false},
		{"Positive", MustFromString("1"), false, true, false},
		{"Negative", MustFromString("-1"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.d.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.d.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestDecimalJSON(t *testing.T) {
	d := MustFromString("0.005")

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var back Decimal
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !back.Equal(d) {
		t.Errorf("round-trip mismatch: got %v, want %v", back, d)
	}
}

func TestDecimalScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"nil", nil, "0"},
		{"string", "12.50", "12.5"},
		{"bytes", []byte("12.50"), "12.5"},
		{"int64", int64(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decimal
			if err := d.Scan(tt.src); err != nil {
				t.Fatalf("Scan(%v): %v", tt.src, err)
			}
			if d.String() != tt.want {
				t.Errorf("got %s, want %s", d.String(), tt.want)
			}
		})
	}
}

func TestDecimalValue(t *testing.T) {
	d := MustFromString("49.99")
	v, err := d.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "49.99" {
		t.Errorf("got %v, want 49.99", v)
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Decimal
		expected string
	}{
		{"Empty", nil, "0"},
		{"Single", []Decimal{MustFromString("1")}, "1"},
		{"Multiple", []Decimal{MustFromString("1"), MustFromString("2"), MustFromString("3")}, "6"},
		{"With negatives", []Decimal{MustFromString("1"), MustFromString("-0.5"), MustFromString("2")}, "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sum(tt.values...)
			if result.String() != tt.expected {
				t.Errorf("Sum: got %s, want %s", result.String(), tt.expected)
			}
		})
	}
}

func BenchmarkDecimalAdd(b *testing.B) {
	x := MustFromString("1.5")
	y := MustFromString("2.5")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = x.Add(y)
	}
}

func BenchmarkDecimalJSON(b *testing.B) {
	d := MustFromString("49.99")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(d)
	}
}
