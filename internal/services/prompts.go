package services

import (
	"fmt"
	"strings"

	"alalim-backend/internal/models"
)

// Model names.
const (
	ModelFlash     = "gemini-2.5-flash"
	ModelFlashLite = "gemini-flash-lite-latest"
	ModelPro       = "gemini-3-pro-preview"
	ModelTTS       = "gemini-2.5-flash-preview-tts"
	ModelLive      = "gemini-2.5-flash-native-audio-preview-09-2025"

	VoiceSpeech = "Kore"
	VoiceLive   = "Zephyr"

	// ThinkingBudget is applied to deep chat on the pro model only.
	ThinkingBudget = 32768
)

// Canned replies substituted when the model fails or answers with nothing.
const (
	ChatEmptyReply   = "Sorry, I could not generate a response."
	ChatFailureReply = "Error accessing knowledge base. Please try again."

	QuranEmptyReply   = "Could not load Surah content."
	QuranFailureReply = "Error loading content. Please try again."

	HadithEmptyReply   = "No hadith found."
	HadithFailureReply = "Error fetching Hadith."

	TafsirEmptyReply   = "দুঃখিত, তাফসীর পাওয়া যায়নি।"
	TafsirFailureReply = "ত্রুটি হয়েছে।"

	BookEmptyReply   = "Content not found."
	BookFailureReply = "Error fetching content."

	MediaDefaultPrompt = "ইসলামিক দৃষ্টিকোণ থেকে এই ছবিটি বিস্তারিত বর্ণনা করুন।"
	MediaEmptyReply    = "কোনো বিশ্লেষণ পাওয়া যায়নি।"
	MediaFailureReply  = "মিডিয়া বিশ্লেষণে সমস্যা হয়েছে।"

	TranscribePrompt       = "Transcribe this audio strictly word for word."
	TranscribeEmptyReply   = "কোনো কথা শনাক্ত হয়নি।"
	TranscribeFailureReply = "অডিও ট্রান্সক্রিপশনে ত্রুটি হয়েছে।"

	LectureDefaultPrompt = "Summarize the key Islamic teachings of this lecture and point out any claims that need an authentic source."
)

// SystemPrompt is the Al-Alim persona, answering in lang.
func SystemPrompt(lang models.Language) string {
	return strings.ReplaceAll(systemPromptTemplate, "{{LANG}}", string(lang))
}

const systemPromptTemplate = `
You are Al-Alim, an Islamic comparative-religion AI trained to answer questions with respect, logic, and evidence—similar to the style of Dr. Zakir Naik.

CORE MISSION:
Explain Islamic concepts clearly using:
1. The Holy Qur’an
2. Sahih Hadith (Bukhari, Muslim, etc.)
3. Logic, science, and comparative reasoning
4. Comparative references from the Torah, Bible, Gita, and other major scriptures when relevant.

RULES & RESPONSIBILITIES:
1. RESPECT: When non-Muslims or Muslims ask sensitive or critical questions, respond calmly, respectfully, and intellectually. Never attack, insult, or mock any faith.
2. EVIDENCE: Present Islam’s viewpoint with authentic evidence. Use comparative references only to clarify or bridge understanding—not to insult.
3. LOGIC: Defend Islamic beliefs using logic, scientific reasoning, and textual analysis.
4. TONE: Avoid debate language; focus on explanation, not confrontation. Be confident about Islamic teachings but neutral and polite toward other religions.
5. LANGUAGE: Your output MUST be in {{LANG}}.

SCENARIOS:
- If asked "Why Islam is correct?": Answer using reason: Qur’anic preservation, Universality, Scientific accuracy (careful, no false claims), Monotheism, and Logical consistency.
- If asked about other scriptures: Compare facts respectfully and academically (e.g., "In the Bible it says X, and in the Quran it clarifies Y").
- If the user expresses EMOTIONAL DISTRESS (depression, anxiety, fear, debt, etc.):
    1. Answer with compassion.
    2. Provide the specific Masnoon Dua from Quran/Sahih Hadith.
    3. Include a short Islamic reminder.

    REQUIRED FORMAT FOR DUAS:
    > **🤲 Dua for [Situation]**
    >
    > **Arabic:**
    > [Insert Arabic Text Here with Vowels]
    >
    > **Transliteration:**
    > [Insert Transliteration]
    >
    > **Translation:**
    > "[Insert Translation in {{LANG}}]"
    >
    > **Source:**
    > [Reference, e.g., Sahih Bukhari 1234]

TONE:
- Respectful
- Logical
- Clear
- Evidence-based
- Peace-promoting
`

// ChatModelOptions is the model configuration picked for one chat turn.
type ChatModelOptions struct {
	Model     string
	Thinking  bool
	UseSearch bool
}

// SelectChatModel picks the model for a chat turn. Image turns always go to
// the pro model without thinking; search grounding follows the request flag
// on every model.
func SelectChatModel(mode models.ChatMode, useSearch, hasImage bool) ChatModelOptions {
	opts := ChatModelOptions{UseSearch: useSearch}
	switch {
	case hasImage:
		opts.Model = ModelPro
	case mode == models.ChatModeFast:
		opts.Model = ModelFlashLite
	case useSearch:
		opts.Model = ModelFlash
	default:
		opts.Model = ModelPro
		opts.Thinking = true
	}
	if !strings.Contains(opts.Model, "gemini-3-pro") {
		opts.Thinking = false
	}
	return opts
}

// ReadingPrompt is the prompt, system instruction and model for one reading
// request along with its canned replies.
type ReadingPrompt struct {
	Model        string
	System       string
	Prompt       string
	EmptyReply   string
	FailureReply string
}

// BuildReadingPrompt renders the prompt for a reading request. hadithTitle is
// the display name of req.Book and is only used for hadith searches.
func BuildReadingPrompt(req models.ReadingRequest, hadithTitle string) (ReadingPrompt, error) {
	lang := req.Language
	if !lang.Valid() {
		lang = models.DefaultLanguage
	}

	switch req.Kind {
	case models.JobQuranSurah:
		return ReadingPrompt{
			Model:  ModelFlash,
			System: "You are a Quran presenter. Output clean Markdown.",
			Prompt: fmt.Sprintf("Fetch the full content of Surah number %d. Provide it in a beautiful, readable format. "+
				"For each verse: 1. Arabic Text (make it large and clear). 2. %s Translation. "+
				"3. Brief footnote or explanation if necessary. Use Markdown formatting.", req.Surah, lang),
			EmptyReply:   QuranEmptyReply,
			FailureReply: QuranFailureReply,
		}, nil

	case models.JobHadithSearch:
		if hadithTitle == "" {
			hadithTitle = req.Book
		}
		return ReadingPrompt{
			Model:  ModelFlash,
			System: "You are a Muhaddith (Hadith scholar).",
			Prompt: fmt.Sprintf("Search within %s for Hadiths related to '%s'. Present 3-5 relevant Hadiths. "+
				"For each: 1. Book/Hadith Number. 2. Arabic Text. 3. %s Translation. 4. Short explanation.",
				hadithTitle, req.Query, lang),
			EmptyReply:   HadithEmptyReply,
			FailureReply: HadithFailureReply,
		}, nil

	case models.JobTafsir:
		p := ReadingPrompt{
			Model:        ModelPro,
			EmptyReply:   TafsirEmptyReply,
			FailureReply: TafsirFailureReply,
		}
		if lang == models.LanguageBangla {
			p.System = "তুমি একজন মুফাসসির। বিস্তারিত তাফসীর প্রদান করো।"
			p.Prompt = fmt.Sprintf("সূরা %d, আয়াত %d এর তাফসীর প্রদান করো। তাফসীর ইবনে কাসির বা নির্ভরযোগ্য উৎস থেকে হতে হবে। "+
				"প্রথমে আরবি আয়াত, তারপর বাংলা অনুবাদ এবং শেষে বিস্তারিত তাফসীর দাও।", req.Surah, req.Ayah)
			return p, nil
		}
		p.System = "You are a Mufassir (Quran exegete). Provide detailed Tafsir."
		p.Prompt = fmt.Sprintf("Provide the Tafsir of Surah %d, Ayah %d. The Tafsir must come from Tafsir Ibn Kathir or another reliable source. "+
			"First give the Arabic verse, then the %s translation, and finally the detailed Tafsir in %s.",
			req.Surah, req.Ayah, lang, lang)
		return p, nil

	case models.JobBookReader:
		p := ReadingPrompt{
			Model:        ModelFlash,
			System:       SystemPrompt(lang),
			EmptyReply:   BookEmptyReply,
			FailureReply: BookFailureReply,
		}
		switch req.BookType {
		case "quran":
			p.Prompt = fmt.Sprintf("Fetch Surah/Verse %s. Return a list where each item has: 1. Arabic Text 2. %s Translation "+
				"3. Brief Explanation. Use Markdown separators.", req.Location, lang)
		case "hadith":
			p.Prompt = fmt.Sprintf("Fetch Hadith regarding %s. Return list: 1. Arabic 2. %s Translation 3. Explanation.",
				req.Location, lang)
		default:
			return ReadingPrompt{}, fmt.Errorf("unknown book type %q", req.BookType)
		}
		return p, nil
	}

	return ReadingPrompt{}, fmt.Errorf("unknown reading kind %q", req.Kind)
}

// DailyVersePrompt asks for one short ayah with no filler.
const DailyVersePrompt = "Provide one short, inspiring Ayat from the Quran with Arabic and translation. Do not add any conversational filler."

// LiveInstruction is the spoken-conversation persona for lang.
func LiveInstruction(lang models.Language) string {
	if lang == models.LanguageBangla || !lang.Valid() {
		return "আপনি একজন বিনয়ী এবং জ্ঞানী ইসলামিক স্কলার। আপনি ব্যবহারকারীর সাথে বাংলা ভাষায় কথা বলুন। উত্তরগুলি সংক্ষিপ্ত এবং কথোপকথনমূলক রাখুন।"
	}
	return fmt.Sprintf("You are a gentle and knowledgeable Islamic scholar. Speak with the user in %s. "+
		"Keep your answers short and conversational.", lang)
}

// LecturePrompt frames a transcript for lecture analysis.
func LecturePrompt(instruction, title, transcript string, lang models.Language) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = LectureDefaultPrompt
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nRespond in %s.\n\n", instruction, lang)
	if title != "" {
		fmt.Fprintf(&b, "Lecture title: %s\n\n", title)
	}
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	return b.String()
}

// DocumentPrompt frames extracted document text for media analysis.
func DocumentPrompt(instruction, filename, text string) string {
	return fmt.Sprintf("%s\n\nDocument: %s\n\n%s", instruction, filename, text)
}
