package provider

import "testing"

func TestLookupFindsEmbeddedProviders(t *testing.T) {
	for _, name := range []string{
		"shopify_function_v1",
		"shopify_function_v2",
		"shopify_functions_javy_v2",
		"shopify_functions_javy_v3",
	} {
		data, ok := Lookup(name)
		if !ok {
			t.Errorf("Lookup(%q) not found", name)
			continue
		}
		if len(data) == 0 {
			t.Errorf("Lookup(%q) returned empty bytes", name)
		}
	}
}

func TestLookupUnknownProvider(t *testing.T) {
	if _, ok := Lookup("not_a_real_provider_v1"); ok {
		t.Error("expected Lookup to report false for an unregistered name")
	}
}

func TestIsMemIOProviderClassification(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"shopify_function_v1", false},
		{"shopify_function_v2", true},
		{"shopify_function_v3", true},
		{"shopify_functions_javy_v2", false},
		{"shopify_functions_javy_v3", true},
		{"shopify_functions_javy_v4", true},
		{"wasi_snapshot_preview1", false},
		{"shopify_function_vX", false},
		{"shopify_function_v-1", false},
	}
	for _, tc := range cases {
		if got := IsMemIOProvider(tc.name); got != tc.want {
			t.Errorf("IsMemIOProvider(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
