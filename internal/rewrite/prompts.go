package rewrite

import "fmt"

func rewritePrompt(text, title string) string {
	return fmt.Sprintf(`You are a senior news editor. Rewrite the article below as an original news story.

ORIGINAL TITLE: %s

ARTICLE:
%s

REQUIREMENTS:
- Write a new headline, a two sentence summary and a full article of at least 500 words.
- Keep every fact, name, number and quote accurate. Do not invent details.
- Use a neutral, journalistic tone and short paragraphs separated by blank lines.
- Pick one category from: World, Politics, Business, Technology, Sports, Health, Entertainment, General.
- Set region to "India" if the story is mainly about India, otherwise "Global".

Respond with JSON only, using exactly this shape:
{"title": "...", "summary": "...", "content": "...", "category": "...", "region": "..."}
`, title, text)
}

func quizPrompt(content, title string) string {
	return fmt.Sprintf(`Create a short multiple choice quiz that tests understanding of this news article.

TITLE: %s

ARTICLE:
%s

REQUIREMENTS:
- 3 to 5 questions answerable from the article alone.
- Exactly 4 options per question and one correct answer.
- correctOptionIndex is the zero-based index of the correct option.
- Add a one sentence explanation per question.

Respond with JSON only, using exactly this shape:
{"title": "...", "description": "...", "questions": [{"questionText": "...", "options": ["...", "...", "...", "..."], "correctOptionIndex": 0, "explanation": "..."}]}
`, title, content)
}
