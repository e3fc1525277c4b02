package framework

import (
	"strings"
	"testing"
)

func issueTypes(issues []Issue) map[IssueType]bool {
	out := make(map[IssueType]bool)
	for _, i := range issues {
		out[i.Type] = true
	}
	return out
}

// 1. Clean component passes.
func TestValidate_Clean(t *testing.T) {
	code := `"use client";

import { useState } from "react";

export default function Counter() {
  const [n, setN] = useState(0);
  return <button onClick={() => setN(n + 1)}>{n}</button>;
}
`
	if issues := Validate(code); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

// 2. Hooks without directive.
func TestValidate_MissingDirective(t *testing.T) {
	code := "export default function A() { const [x] = useState(1); return x }"
	if !issueTypes(Validate(code))[IssueMissingDirective] {
		t.Error("expected missing directive issue")
	}
}

// 3. Legacy router import, push and top-level hook.
func TestValidate_RouterProblems(t *testing.T) {
	code := `"use client";
import { useRouter } from "next/router";
const router = useRouter();
router.push("/home");
`
	got := issueTypes(Validate(code))
	for _, want := range []IssueType{IssueRouterImport, IssueTopLevelHook, IssueRouterPush} {
		if !got[want] {
			t.Errorf("expected %s issue, got %v", want, got)
		}
	}
	if got[IssueRouterUndefined] {
		t.Error("router is defined, did not expect router_undefined")
	}
}

// 4. Router used without useRouter.
func TestValidate_RouterUndefined(t *testing.T) {
	code := "export default function A() { router.back(); return null }"
	if !issueTypes(Validate(code))[IssueRouterUndefined] {
		t.Error("expected router_undefined issue")
	}
}

func TestPostProcess(t *testing.T) {
	code := `import { useRouter } from 'next/router';
export default function Nav() {
  const router = useRouter();
  return router.push('/login');
}`
	out := PostProcess(code)
	if !strings.HasPrefix(out, "\"use client\";\n\n") {
		t.Errorf("expected directive prefix, got %q", out[:20])
	}
	if !strings.Contains(out, "import { useRouter } from 'next/navigation';") {
		t.Errorf("expected navigation import, got:\n%s", out)
	}
	if !strings.Contains(out, `<Link href="/login">Navigate</Link>`) {
		t.Errorf("expected Link rewrite, got:\n%s", out)
	}
	if PostProcess(out) != out {
		t.Error("post-processing should be stable on its own output")
	}
}

func TestPostProcess_NoHooksUntouched(t *testing.T) {
	code := "export const x = 1;\n"
	if PostProcess(code) != code {
		t.Error("expected code without hooks to be unchanged")
	}
}
