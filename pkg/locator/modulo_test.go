package locator

import "testing"

func TestComputeModuloMatchesPercent(t *testing.T) {
	ds := []uint64{1, 2, 3, 4, 5, 7, 8, 15, 16, 31, 32, 63, 64, 100, 127, 128, 255, 256, 1000, 1023, 1024}
	for _, d := range ds {
		for n := uint64(0); n < 2000; n++ {
			got := ComputeModulo(n, d)
			want := n % d
			if got != want {
				t.Fatalf("ComputeModulo(%d, %d) = %d, want %d", n, d, got, want)
			}
		}
	}
}

func TestComputeModuloLargeValues(t *testing.T) {
	cases := []struct{ n, d uint64 }{
		{0x5C20F8FB, 4},
		{0xFFFFFFFFFFFFFFFF, 3},
		{0xFFFFFFFFFFFFFFFF, 7},
		{0xFFFFFFFFFFFFFFFF, 1 << 32},
		{1 << 62, 15},
	}
	for _, c := range cases {
		if got, want := ComputeModulo(c.n, c.d), c.n%c.d; got != want {
			t.Fatalf("ComputeModulo(%d, %d) = %d, want %d", c.n, c.d, got, want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, v := range []uint64{1, 2, 4, 8, 1024} {
		if !isPowerOfTwo(v) {
			t.Fatalf("isPowerOfTwo(%d) = false, want true", v)
		}
	}
	for _, v := range []uint64{0, 3, 5, 6, 100} {
		if isPowerOfTwo(v) {
			t.Fatalf("isPowerOfTwo(%d) = true, want false", v)
		}
	}
}
