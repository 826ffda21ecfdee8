package affection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const unboundedToken = "inf"

// Amount is a currency value: either a finite integer or Unbounded.
// Unbounded is produced only by the cheat flags; it absorbs every delta
// and covers every cost.
type Amount struct {
	n         int64
	unbounded bool
}

func Finite(n int64) Amount { return Amount{n: n} }

func Unbounded() Amount { return Amount{unbounded: true} }

func (a Amount) IsUnbounded() bool { return a.unbounded }

// Value returns the finite value and false when the amount is unbounded.
func (a Amount) Value() (int64, bool) {
	if a.unbounded {
		return 0, false
	}
	return a.n, true
}

func (a Amount) Add(delta int64) Amount {
	if a.unbounded {
		return a
	}
	return Amount{n: a.n + delta}
}

// Floor raises a finite amount to min.
func (a Amount) Floor(min int64) Amount {
	if a.unbounded || a.n >= min {
		return a
	}
	return Amount{n: min}
}

func (a Amount) Covers(cost int64) bool {
	return a.unbounded || a.n >= cost
}

func (a Amount) AtLeast(threshold int64) bool {
	return a.unbounded || a.n >= threshold
}

// String is the HUD rendering. Negative intermediates display as 0.
func (a Amount) String() string {
	if a.unbounded {
		return "∞"
	}
	if a.n < 0 {
		return "0"
	}
	return strconv.FormatInt(a.n, 10)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.unbounded {
		return json.Marshal(unboundedToken)
	}
	return []byte(strconv.FormatInt(a.n, 10)), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Finite(0)
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case unboundedToken, "infinity", "∞":
			*a = Unbounded()
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", s)
		}
		*a = Finite(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) || math.Abs(f) > math.MaxInt64/2 {
		*a = Finite(0)
		return nil
	}
	*a = Finite(int64(math.Round(f)))
	return nil
}

// creditAffection applies the permanent multiplier once, rounding half up
// to an integer. Every affection credit goes through here.
func creditAffection(delta int64, multiplier float64) int64 {
	if multiplier <= 0 {
		multiplier = 1
	}
	return int64(math.Floor(float64(delta)*multiplier + 0.5))
}
