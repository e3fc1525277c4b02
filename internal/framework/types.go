package framework

// #region issue
// IssueType classifies a framework convention violation.
type IssueType string

const (
	IssueMissingDirective IssueType = "missing_directive"
	IssueRouterImport     IssueType = "router_import"
	IssueTopLevelHook     IssueType = "top_level_hook"
	IssueRouterPush       IssueType = "router_push"
	IssueRouterUndefined  IssueType = "router_undefined"
)

// Issue is one detected problem in generated code.
type Issue struct {
	Type   IssueType
	Reason string
}

func (i Issue) String() string { return i.Reason }
// #endregion issue
