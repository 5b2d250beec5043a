// Package entity 定义领域实体
package entity

// SearchResult 搜索结果条目，只由搜索提供方产生
type SearchResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	ImageURL string `json:"image_url,omitempty"`
}

// SourceRecord 一条来源记录
// Content 为抓取到的正文；抓取失败时退化为搜索摘要
type SourceRecord struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	Degraded  bool   `json:"degraded"`
}
