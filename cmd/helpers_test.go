package cmd

import (
	"reflect"
	"testing"
)

func TestSplitTagsDropsEmptyEntries(t *testing.T) {
	got := splitTags(" db , , prod ,staging")
	want := []string{"db", "prod", "staging"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitTags() = %v, want %v", got, want)
	}
}

func TestSplitTagsEmptyInputReturnsNil(t *testing.T) {
	if got := splitTags(""); got != nil {
		t.Errorf("splitTags(\"\") = %v, want nil", got)
	}
}
