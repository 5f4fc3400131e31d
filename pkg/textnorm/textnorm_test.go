package textnorm

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"  Cien Años  de Soledad": "cien anos de soledad",
		"GARCÍA MÁRQUEZ":          "garcia marquez",
		"":                        "",
		"Ciencia\tficción":        "ciencia ficcion",
	}
	for input, want := range cases {
		if got := Fold(input); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Historia de Honduras (2ª ed.)": "historia-de-honduras-2a-ed",
		"El Principito":                 "el-principito",
		"--¿Qué?--":                     "que",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTitle(t *testing.T) {
	if got := Title("  La   casa de  los espíritus "); got != "La casa de los espíritus" {
		t.Fatalf("unexpected title %q", got)
	}
}
