package slackbot

import (
	"strings"

	"github.com/slack-go/slack"

	"paperwhale/services"
)

// Callback-IDs der Modals; die View-Submission wird darüber zugeordnet.
const (
	addPaperCallbackID       = "add_paper_view"
	searchPaperCallbackID    = "search_paper_view"
	registerKeyCallbackID    = "register_api_key_view"
	summarizePaperCallbackID = "summarize_paper_view"
)

func plainText(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, s, false, false)
}

func textInput(blockID, actionID, label, placeholder string, multiline, optional bool) *slack.InputBlock {
	element := slack.NewPlainTextInputBlockElement(plainText(placeholder), actionID)
	element.Multiline = multiline
	block := slack.NewInputBlock(blockID, plainText(label), nil, element)
	block.Optional = optional
	return block
}

// addPaperModal baut das Eingabe-Modal für neue Papers. Alle Felder sind
// optional; die eigentliche Validierung passiert serverseitig beim Abgleich.
func addPaperModal() slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: addPaperCallbackID,
		Title:      plainText("Add Paper"),
		Submit:     plainText("Add"),
		Close:      plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			textInput("paper_title_block", "paper_title_input", "Title", "Paper title", false, true),
			textInput("paper_url_block", "paper_url_input", "URL", "https://...", false, true),
			textInput("bibtex_block", "bibtex_input", "BibTeX", "@article{...}", true, true),
			textInput("paper_authors_block", "paper_authors_input", "Authors", "Comma-separated names", false, true),
			textInput("paper_keywords_block", "paper_keywords_input", "Keywords", "Comma-separated keywords", false, true),
			textInput("paper_summary_block", "paper_summary_input", "Summary", "Abstract or notes", true, true),
			textInput("paper_published_date_block", "paper_published_date_input", "Published date", "YYYY-MM-DD", false, true),
			textInput("paper_arxiv_id_block", "paper_arxiv_id_input", "arXiv ID", "e.g. 2401.12345", false, true),
		}},
	}
}

func searchPaperModal() slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: searchPaperCallbackID,
		Title:      plainText("Search Papers"),
		Submit:     plainText("Search"),
		Close:      plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			textInput("search_query_block", "search_query_input", "Query", "Title, author, keyword ...", false, false),
		}},
	}
}

func registerKeyModal() slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: registerKeyCallbackID,
		Title:      plainText("Register API Key"),
		Submit:     plainText("Register"),
		Close:      plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			textInput("api_key_block", "api_key_input", "Gemini API key", "AIza...", false, false),
		}},
	}
}

func summarizePaperModal() slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: summarizePaperCallbackID,
		Title:      plainText("Summarize Paper"),
		Submit:     plainText("Summarize"),
		Close:      plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			textInput("summarize_paper_block", "summarize_paper_input", "Paper ID", "Numeric paper ID", false, false),
		}},
	}
}

// stateValue liest einen Eingabewert aus der View-Submission.
func stateValue(callback slack.InteractionCallback, blockID, actionID string) string {
	if callback.View.State == nil {
		return ""
	}
	block, ok := callback.View.State.Values[blockID]
	if !ok {
		return ""
	}
	return strings.TrimSpace(block[actionID].Value)
}

// splitList trennt eine kommaseparierte Eingabe in bereinigte Einträge.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// submissionFromView übersetzt den View-State in die typisierte Einreichung.
func submissionFromView(callback slack.InteractionCallback) services.PaperSubmission {
	return services.PaperSubmission{
		Title:         stateValue(callback, "paper_title_block", "paper_title_input"),
		URL:           stateValue(callback, "paper_url_block", "paper_url_input"),
		BibTeX:        stateValue(callback, "bibtex_block", "bibtex_input"),
		AuthorNames:   splitList(stateValue(callback, "paper_authors_block", "paper_authors_input")),
		KeywordNames:  splitList(stateValue(callback, "paper_keywords_block", "paper_keywords_input")),
		Summary:       stateValue(callback, "paper_summary_block", "paper_summary_input"),
		PublishedDate: stateValue(callback, "paper_published_date_block", "paper_published_date_input"),
		ArxivID:       stateValue(callback, "paper_arxiv_id_block", "paper_arxiv_id_input"),
	}
}

// homeView ist der App-Home-Tab: Kommando-Übersicht plus die aktuellen
// Abos des Users.
func homeView(keywords, authors []string) slack.HomeTabViewRequest {
	intro := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			"*Welcome to PaperWhale!* :whale:\nTrack research papers, subscribe to keywords and authors, and get AI summaries.", false, false),
		nil, nil)
	commands := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			"*Commands:*\n"+
				"• `/paper-add` — add a paper (manual fields or BibTeX)\n"+
				"• `/paper-search` — search the archive\n"+
				"• `/paper-summarize` — summarize a stored paper\n"+
				"• `/summarize <text>` — summarize free text\n"+
				"• `/keyword-subscribe <keyword>` / `/keyword-unsubscribe <keyword>`\n"+
				"• `/author-subscribe <name>` / `/author-unsubscribe <name>`\n"+
				"• `/apikey-register` — store your Gemini API key", false, false),
		nil, nil)
	blocks := []slack.Block{intro, slack.NewDividerBlock(), commands}
	if len(keywords) > 0 || len(authors) > 0 {
		var sb strings.Builder
		sb.WriteString("*Your subscriptions:*\n")
		if len(keywords) > 0 {
			sb.WriteString("Keywords: " + strings.Join(keywords, ", ") + "\n")
		}
		if len(authors) > 0 {
			sb.WriteString("Authors: " + strings.Join(authors, ", ") + "\n")
		}
		blocks = append(blocks, slack.NewDividerBlock(), slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, sb.String(), false, false), nil, nil))
	}
	return slack.HomeTabViewRequest{
		Type:   slack.VTHomeTab,
		Blocks: slack.Blocks{BlockSet: blocks},
	}
}
