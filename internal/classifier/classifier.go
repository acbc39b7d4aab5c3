// Package classifier 提供确定性的消息分类：
// 按固定优先级的关键词规则表将用户输入映射到任务类别。
package classifier

import "strings"

// Result 分类结果
type Result struct {
	Response string   `json:"response"`
	Task     string   `json:"task"`
	Tools    []string `json:"tools"`
}

// rule 分类规则：关键词按小写子串匹配，规则按声明顺序求值，首个命中即返回
type rule struct {
	keywords []string
	task     string
	tools    []string
	response string
}

// rules 规则表，顺序即优先级，勿随意调整
var rules = []rule{
	{
		keywords: []string{"website", "web", "browse", "url", "html", "css"},
		task:     "Website development and design",
		tools:    []string{"code", "file", "browser"},
		response: "I'll help you create a website! Let me start by understanding your requirements and then build the HTML, CSS, and any necessary JavaScript. I can create responsive designs, add interactive features, and ensure your site looks professional.",
	},
	{
		keywords: []string{"code", "program", "script", "python", "javascript", "app"},
		task:     "Code development and programming",
		tools:    []string{"code", "terminal", "file"},
		response: "I'll help you with coding! I can write, debug, and optimize code in various programming languages. Let me analyze your requirements and create the solution you need.",
	},
	{
		keywords: []string{"file", "document", "edit", "write", "text"},
		task:     "File management and document editing",
		tools:    []string{"file", "terminal"},
		response: "I'll help you work with files and documents. I can create, edit, organize, and manage various types of files. Let me handle the file operations for you.",
	},
	{
		keywords: []string{"data", "analyze", "chart", "graph", "database", "csv", "excel"},
		task:     "Data analysis and visualization",
		tools:    []string{"database", "code", "image"},
		response: "I'll help you analyze data and create visualizations! I can process datasets, generate insights, create charts and graphs, and help you understand your data better.",
	},
	{
		keywords: []string{"image", "picture", "generate", "create", "photo", "design"},
		task:     "Image generation and processing",
		tools:    []string{"image", "file"},
		response: "I'll help you work with images! I can generate new images, edit existing ones, create designs, and handle various image processing tasks.",
	},
	{
		keywords: []string{"search", "find", "lookup", "research", "information"},
		task:     "Web research and information gathering",
		tools:    []string{"browser", "file"},
		response: "I'll help you research and find information! I can browse the web, search for specific topics, gather data, and provide you with comprehensive research results.",
	},
}

// fallback 未命中任何规则时的缺省结果
var fallback = rule{
	task:     "Processing your request using available tools",
	tools:    []string{"terminal", "code", "file"},
	response: "I understand your request! I'm a versatile AI agent that can help with web browsing, coding, file editing, data analysis, image generation, and much more. Let me work on this task for you.",
}

// Classify 对输入文本分类
// 纯函数：对任意输入（含空串）总是返回确定结果，不会出错
func Classify(text string) Result {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.matches(lower) {
			return r.result()
		}
	}
	return fallback.result()
}

func (r rule) matches(lower string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// result 返回规则结果的副本，调用方修改 Tools 不会污染规则表
func (r rule) result() Result {
	return Result{
		Response: r.response,
		Task:     r.task,
		Tools:    append([]string(nil), r.tools...),
	}
}
