package ai

// ChatMessage 對話訊息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest chat/completions 請求
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// Response AI 響應
type Response struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice 選擇
type Choice struct {
	Message ChatMessage `json:"message"`
}

// Usage 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// generatedRecipe 模型輸出的單一食譜
type generatedRecipe struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	CookMinutes int                   `json:"cook_minutes"`
	Difficulty  string                `json:"difficulty"`
	Tags        []string              `json:"tags"`
	Ingredients []generatedIngredient `json:"ingredients"`
	Steps       []string              `json:"steps"`
}

type generatedIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

type generatedPayload struct {
	Recipes []generatedRecipe `json:"recipes"`
}
