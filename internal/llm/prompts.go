package llm

import (
	"fmt"
	"sort"
	"strings"
)

const systemPrompt = "You are a helpful assistant."

// #region prompts
func planPrompt(task string, files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ctx strings.Builder
	for i, p := range paths {
		if i > 0 {
			ctx.WriteString("\n\n")
		}
		fmt.Fprintf(&ctx, "File: %s\n%s", p, files[p])
	}

	return fmt.Sprintf(`You are a software engineer assistant. Break down the following task into smaller, actionable steps for implementation in a Next.js project using React and Tailwind CSS.
Consider the context of the existing code provided below.

Task:
%s

Existing Code Context:
%s

Provide the steps as a numbered list, including specific file names and locations where changes should be made.
`, task, ctx.String())
}

func generatePrompt(task, content string) string {
	return fmt.Sprintf(`You are a proficient React and Next.js developer, specifically for Next.js version 13 and above.

Task: %s

Current file content:
%s

Please generate the complete, updated file content implementing the requested feature.

Important instructions:

- Ensure the code follows Next.js 13+ conventions.
- Use the 'use client' directive at the top of the file if any client-side hooks (useState, useEffect, useRouter) are used.
- Import useRouter from 'next/navigation', not 'next/router'.
- Use the Link component from 'next/link' for navigation instead of router.push().
- Do not call useRouter or other client-side hooks at the top level of the file. Call them inside component functions.
- Provide the full code, including all necessary imports, component definitions and the full implementation.
- Do not use placeholders or comments like "// rest of the code goes here".
- Do not include any markdown formatting in your response.
- Provide only the code without any explanations or additional text.

Begin now:
`, task, content)
}

func modifyPrompt(task, code string) string {
	return fmt.Sprintf(`You are a senior React and Next.js developer.

The code below was generated for this task: %s

Review it. Ensure it is complete, correct and ready for production use. Fix bugs, lint problems and duplicated logic.

Important instructions:

- Provide the full, corrected code without placeholders.
- Do not include any markdown code fences.
- Provide only the corrected code without any explanations or additional text.

Generated code:
%s

Begin now:
`, task, code)
}
// #endregion prompts
