package extract

import "testing"

func TestApplyPriceStripsSeparators(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"  250.000 ", "250000"},
		{"1.250.000 TL", "1250000"},
		{"250,000", "250000"},
		{"€ 99", "99"},
	}
	for _, tc := range cases {
		got, err := Apply(TransformPrice, tc.in)
		if err != nil {
			t.Fatalf("Apply(price, %q) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Apply(price, %q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := Apply(TransformPrice, "fiyat yok"); err == nil {
		t.Fatal("expected error for price without digits")
	}
}

func TestParseLocalizedDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"turkish with label", "İlan Tarihi 5 Mart 2024", "2024-03-05"},
		{"turkish diacritics", "12 Ağustos 2023", "2023-08-12"},
		{"turkish dotted i month", "3 Nisan 2022", "2022-04-03"},
		{"english full", "Posted on 7 January 2024", "2024-01-07"},
		{"english month first", "March 15, 2021", "2021-03-15"},
		{"uppercase", "28 EYLÜL 2020", "2020-09-28"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLocalizedDate(tc.in)
			if err != nil {
				t.Fatalf("ParseLocalizedDate(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseLocalizedDate(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	for _, bad := range []string{"no date here", "Mart", "5 Mart"} {
		if _, err := ParseLocalizedDate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestApplyPhone(t *testing.T) {
	t.Parallel()

	got, err := Apply(TransformPhone, "+90 (532) 123 45 67")
	if err != nil {
		t.Fatalf("phone transform error = %v", err)
	}
	if got != "+905321234567" {
		t.Fatalf("phone = %q, want +905321234567", got)
	}

	if _, err := Apply(TransformPhone, "ara beni"); err == nil {
		t.Fatal("expected error for text without a phone")
	}
}

func TestApplyEmail(t *testing.T) {
	t.Parallel()

	got, err := Apply(TransformEmail, "İletişim: Satis.Ofisi@Example.COM (mesai saatleri)")
	if err != nil {
		t.Fatalf("email transform error = %v", err)
	}
	if got != "satis.ofisi@example.com" {
		t.Fatalf("email = %q", got)
	}
}

func TestApplyCaseTransforms(t *testing.T) {
	t.Parallel()

	if got, _ := Apply(TransformLowercase, "  SATILIK Daire "); got != "satilik daire" {
		t.Fatalf("lowercase = %q", got)
	}
	if got, _ := Apply(TransformUppercase, "kiralik"); got != "KIRALIK" {
		t.Fatalf("uppercase = %q", got)
	}
	// Unknown transforms degrade to normalized text.
	if got, _ := Apply(Transform("bogus"), " a  b "); got != "a b" {
		t.Fatalf("unknown transform = %q", got)
	}
}
