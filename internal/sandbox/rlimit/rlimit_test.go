//go:build linux

package rlimit

import (
	"testing"

	"golang.org/x/sys/unix"

	"sandrun/internal/sandbox/spec"
)

func findRule(rules []Rule, resource int) (unix.Rlimit, bool) {
	for _, r := range rules {
		if r.Resource == resource {
			return r.Limit, true
		}
	}
	return unix.Rlimit{}, false
}

func TestRules(t *testing.T) {
	cases := []struct {
		name     string
		limits   spec.Limits
		resource int
		want     unix.Rlimit
	}{
		{
			name:     "memory_in_decimal_kilobytes",
			limits:   spec.Limits{MemoryKB: 262144},
			resource: unix.RLIMIT_AS,
			want:     unix.Rlimit{Cur: 262144000, Max: 262144000},
		},
		{
			name:     "stack_in_decimal_kilobytes",
			limits:   spec.Limits{StackKB: 8192},
			resource: unix.RLIMIT_STACK,
			want:     unix.Rlimit{Cur: 8192000, Max: 8192000},
		},
		{
			name:     "negative_stack_is_unlimited",
			limits:   spec.Limits{StackKB: -1},
			resource: unix.RLIMIT_STACK,
			want:     unix.Rlimit{Cur: unix.RLIM_INFINITY, Max: unix.RLIM_INFINITY},
		},
		{
			name:     "cpu_time_rounds_up_to_seconds",
			limits:   spec.Limits{CPUTimeMs: 1500},
			resource: unix.RLIMIT_CPU,
			want:     unix.Rlimit{Cur: 2, Max: 2},
		},
		{
			name:     "sub_second_cpu_budget_gets_one_second",
			limits:   spec.Limits{CPUTimeMs: 1},
			resource: unix.RLIMIT_CPU,
			want:     unix.Rlimit{Cur: 1, Max: 1},
		},
		{
			name:     "whole_second_cpu_budget_does_not_round",
			limits:   spec.Limits{CPUTimeMs: 3000},
			resource: unix.RLIMIT_CPU,
			want:     unix.Rlimit{Cur: 3, Max: 3},
		},
		{
			name:     "file_size_in_decimal_kilobytes",
			limits:   spec.Limits{FileSizeKB: 64},
			resource: unix.RLIMIT_FSIZE,
			want:     unix.Rlimit{Cur: 64000, Max: 64000},
		},
		{
			name:     "process_count",
			limits:   spec.Limits{MaxProcesses: 16},
			resource: unix.RLIMIT_NPROC,
			want:     unix.Rlimit{Cur: 16, Max: 16},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := findRule(Rules(tc.limits), tc.resource)
			if !ok {
				t.Fatalf("Rules() missing resource %d", tc.resource)
			}
			if got != tc.want {
				t.Fatalf("Rules()[%d] = %+v, want %+v", tc.resource, got, tc.want)
			}
		})
	}
}

func TestRulesUnsetBudgets(t *testing.T) {
	rules := Rules(spec.Limits{})
	// Only the forced core-dump limit remains.
	if len(rules) != 1 {
		t.Fatalf("Rules(zero) = %+v, want only the core limit", rules)
	}
	if rules[0].Resource != unix.RLIMIT_CORE || rules[0].Limit != (unix.Rlimit{}) {
		t.Fatalf("Rules(zero)[0] = %+v", rules[0])
	}
}

func TestRulesCoreAlwaysZeroAndLast(t *testing.T) {
	rules := Rules(spec.Limits{MemoryKB: 1, CPUTimeMs: 1, FileSizeKB: 1, MaxProcesses: 1, StackKB: 1})
	last := rules[len(rules)-1]
	if last.Resource != unix.RLIMIT_CORE {
		t.Fatalf("last rule resource = %d, want RLIMIT_CORE", last.Resource)
	}
	if last.Limit != (unix.Rlimit{}) {
		t.Fatalf("core limit = %+v, want zero", last.Limit)
	}
}
