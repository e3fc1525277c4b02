// Package framework checks and patches generated code against Next.js 13+
// app-router conventions.
package framework

import (
	"regexp"
	"strings"
)

var clientHooks = []string{"useState", "useEffect", "useRouter"}

var (
	routerAssign   = regexp.MustCompile(`const\s+\w+\s*=\s*useRouter\(\)`)
	componentDecl  = regexp.MustCompile(`(function|const)\s+\w+\s*=?\s*(\(|\{)`)
	routerCall     = regexp.MustCompile(`router\.\w+\([^)]*\)`)
	routerPushLink = regexp.MustCompile(`router\.push\(['"](.+?)['"]\)`)
	legacyRouter   = regexp.MustCompile(`import\s*\{\s*useRouter\s*\}\s*from\s*(['"])next/router(['"]);?`)
	navRouter      = regexp.MustCompile(`import\s*\{\s*useRouter\s*\}\s*from\s*['"]next/navigation['"]`)
)

// #region validate
// Validate reports convention violations. An empty result means the code passed.
func Validate(code string) []Issue {
	var issues []Issue

	if !hasDirective(code) && usesClientHooks(code) {
		issues = append(issues, Issue{
			Type:   IssueMissingDirective,
			Reason: "client-side hooks are used without the 'use client' directive",
		})
	}

	if strings.Contains(code, "useRouter") {
		if !navRouter.MatchString(code) {
			issues = append(issues, Issue{
				Type:   IssueRouterImport,
				Reason: "useRouter should be imported from 'next/navigation'",
			})
		}
		if loc := routerAssign.FindStringIndex(code); loc != nil && !componentDecl.MatchString(code[:loc[0]]) {
			issues = append(issues, Issue{
				Type:   IssueTopLevelHook,
				Reason: "useRouter should be called inside a component function, not at the top level",
			})
		}
	}

	if strings.Contains(code, "router.push(") {
		issues = append(issues, Issue{
			Type:   IssueRouterPush,
			Reason: "router.push() is used; prefer the Link component for client-side navigation",
		})
	}

	if routerCall.MatchString(code) && !strings.Contains(code, "const router = useRouter()") {
		issues = append(issues, Issue{
			Type:   IssueRouterUndefined,
			Reason: "router is used before it is defined with useRouter()",
		})
	}

	return issues
}
// #endregion validate

// #region post-process
// PostProcess applies the mechanical fixes: adds the client directive when hooks
// are used, moves useRouter to next/navigation and turns literal router.push
// calls into Link elements.
func PostProcess(code string) string {
	if usesClientHooks(code) && !hasDirective(code) {
		code = "\"use client\";\n\n" + code
	}
	code = legacyRouter.ReplaceAllString(code, `import { useRouter } from ${1}next/navigation${2};`)
	code = routerPushLink.ReplaceAllString(code, `<Link href="$1">Navigate</Link>`)
	return code
}
// #endregion post-process

func hasDirective(code string) bool {
	return strings.Contains(code, `"use client";`) || strings.Contains(code, `'use client';`)
}

func usesClientHooks(code string) bool {
	for _, h := range clientHooks {
		if strings.Contains(code, h) {
			return true
		}
	}
	return false
}
