package lexicon

var stopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and", "any", "are", "aren't",
	"as", "at", "be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can't", "cannot", "could", "couldn't", "did", "didn't", "do", "does", "doesn't", "doing", "don't",
	"down", "during", "each", "few", "for", "from", "further", "had", "hadn't", "has", "hasn't", "have",
	"haven't", "having", "he", "he'd", "he'll", "he's", "her", "here", "here's", "hers", "herself", "him",
	"himself", "his", "how", "how's", "i", "i'd", "i'll", "i'm", "i've", "if", "in", "into", "is", "isn't",
	"it", "it's", "its", "itself", "let's", "me", "more", "most", "mustn't", "my", "myself", "no", "nor",
	"not", "of", "off", "on", "once", "only", "or", "other", "ought", "our", "ours", "ourselves", "out",
	"over", "own", "same", "shan't", "she", "she'd", "she'll", "she's", "should", "shouldn't", "so", "some",
	"such", "than", "that", "that's", "the", "their", "theirs", "them", "themselves", "then", "there",
	"there's", "these", "they", "they'd", "they'll", "they're", "they've", "this", "those", "through", "to",
	"too", "under", "until", "up", "very", "was", "wasn't", "we", "we'd", "we'll", "we're", "we've", "were",
	"weren't", "what", "what's", "when", "when's", "where", "where's", "which", "while", "who", "who's",
	"whom", "why", "why's", "with", "won't", "would", "wouldn't", "you", "you'd", "you'll", "you're",
	"you've", "your", "yours", "yourself", "yourselves",
	// spoken-transcript filler
	"um", "uh", "yeah", "okay", "ok", "just", "really", "like", "gonna", "wanna", "got", "get", "going",
	"know", "thing", "things", "actually", "basically", "literally", "right", "well", "also", "one",
}

var emotionWords = map[string][]string{
	"joy": {
		"happy", "love", "loved", "amazing", "wonderful", "beautiful", "great", "awesome", "fantastic",
		"joy", "glad", "delighted", "grateful", "blessed", "perfect", "best", "fun", "smile", "laugh",
	},
	"excitement": {
		"excited", "exciting", "thrilled", "incredible", "insane", "crazy", "epic", "wow", "unbelievable",
		"huge", "massive", "explode", "exploded", "viral", "pumped", "hyped", "wild", "legendary",
	},
	"surprise": {
		"surprised", "surprising", "shocked", "shocking", "unexpected", "suddenly", "whoa", "twist",
		"realized", "discovered", "turns", "revealed", "stunned", "speechless", "strange", "weird",
	},
	"anger": {
		"angry", "furious", "hate", "hated", "mad", "outraged", "rage", "annoyed", "frustrated",
		"ridiculous", "unfair", "disgusting", "stupid", "scam", "lied", "betrayed", "worst",
	},
	"fear": {
		"afraid", "scared", "terrified", "fear", "panic", "dangerous", "danger", "risk", "worried",
		"anxious", "nervous", "threat", "warning", "deadly", "nightmare", "terrifying", "horror",
	},
	"sadness": {
		"sad", "cry", "cried", "crying", "depressed", "lonely", "lost", "heartbroken", "miss", "grief",
		"pain", "hurt", "broke", "broken", "failed", "failure", "regret", "tragic", "died",
	},
	"curiosity": {
		"secret", "secrets", "mystery", "hidden", "why", "how", "truth", "discover", "wonder", "curious",
		"unknown", "reveal", "question", "strange", "nobody", "weird", "trick", "hack",
	},
}

var viralTriggers = []string{
	"you won't believe", "nobody", "no one", "secret", "shocking", "truth", "mistake", "never",
	"insane", "crazy", "hack", "exposed", "warning", "stop", "free", "millionaire", "money", "hidden",
	"revealed", "finally", "proven", "instantly", "banned", "lie", "scam", "impossible", "changed my life",
}

var fillerWords = []string{
	"um", "uh", "uhm", "er", "like", "you know", "i mean", "basically", "literally", "sort of",
	"kind of", "so yeah", "anyway", "whatever",
}

var shockPatterns = []string{
	`\b(shocking|shocked|insane|crazy|unbelievable|mind[- ]blowing|jaw[- ]dropping)\b`,
	`\byou won'?t believe\b`,
	`\b(never|nobody|no one) (expected|saw it coming)\b`,
	`\b(terrifying|horrifying|disturbing)\b`,
	`\bthis changes everything\b`,
}

var confessionPatterns = []string{
	`\bi (have to|need to|must) (admit|confess)\b`,
	`\b(honestly|truth is|to be honest|confession)\b`,
	`\bi('ve| have) never (told|said|shared)\b`,
	`\b(i was wrong|my biggest mistake|i regret)\b`,
	`\bnobody knows (this|that)\b`,
}

var hookPatterns = []string{
	`^\s*(what if|imagine|here'?s (why|how|what|the thing))\b`,
	`\b(the secret|the truth|the real reason)\b`,
	`\b(stop|don'?t) (doing|making|buying)\b`,
	`\b(why|how) (you|most people|everyone)\b`,
	`\?`,
}

var contrarianPatterns = []string{
	`\b(everyone|everybody|most people) (thinks?|believes?|says?)\b`,
	`\b(actually|in fact),? (it'?s|this is) (not|wrong)\b`,
	`\b(myth|overrated|wrong about)\b`,
	`\bunpopular opinion\b`,
	`\bcontrary to\b`,
}

var numericPatterns = []string{
	`\$\s?\d`,
	`\b\d+(\.\d+)?\s?(%|percent)`,
	`\b\d+\s+(years?|months?|days?|hours?|minutes?|times|people)\b`,
	`\b(million|billion|thousand)\b`,
	`\b\d{2,}\b`,
}

var openLoopPatterns = []string{
	`\b(but (first|wait)|wait (for it|until))\b`,
	`\b(here'?s what|what happened next)\b`,
	`\b(stick around|in a (second|minute))\b`,
	`\b(the (answer|reason) (is|was)|turns out)\b`,
}

var deathSignalPatterns = []string{
	`^\s*(hey|hi|hello|what'?s up|yo)\b`,
	`\bwelcome (back )?to (my|the|our) (channel|podcast|show|video|stream)\b`,
	`\bin (this|today'?s) (video|episode)\b`,
	`^\s*so,? (today|um|uh)\b`,
	`\bbefore we (start|begin|get started)\b`,
	`\b(don'?t forget to|make sure (to|you)) (like|subscribe)\b`,
	`^\s*(um+|uh+|okay so|alright so)\b`,
	`\bmy name is\b`,
}

var strongOpeningPatterns = []string{
	`^\s*(what if|imagine|here'?s|did you know|if you|nobody|no one|stop|never|why|how)\b`,
	`^\s*this is (why|how|what)\b`,
	`^\s*the (biggest|worst|best|only|real|one)\b`,
	`^\s*i (lost|made|quit|got|spent|found|tried|was)\b`,
	`^\s*you('re| are)?\b`,
	`^\s*\$?\d`,
}

var fillerPatterns = []string{
	`\b(um+|uh+|uhm)\b`,
	`\byou know\b`,
	`\bi mean\b`,
	`\b(basically|literally)\b`,
	`\b(sort|kind) of\b`,
	`\blike,`,
	`\bso yeah\b`,
}

var hookIndicatorPatterns = []string{
	`\b(this (happened|is the story)|so (this|one day)|let me tell you)\b`,
	`\b(i (was|remember)|imagine|what if|yesterday|once)\b`,
	`\b(story|listen)\b`,
	`\?`,
}

var tensionIndicatorPatterns = []string{
	`\b(but|however|suddenly|until)\b`,
	`\b(problem|wrong|struggle|struggled|worried|scared|fail(ed)?)\b`,
	`\b(couldn'?t|didn'?t|wasn'?t|no way)\b`,
}

var payoffIndicatorPatterns = []string{
	`\b(finally|turns out|ended up|figured out)\b`,
	`\b(discovered|solution|learned|lesson)\b`,
	`\bthe (answer|key|secret) (is|was)\b`,
	`\bthat'?s (why|how|when)\b`,
	`\bso now\b`,
}

var curiosityPatterns = []string{
	`\b(nobody|no one) (tells?|talks? about|knows?)\b`,
	`\bsecrets?\b`,
	`\b(the truth|here'?s (why|how|what))\b`,
	`\b(you need to know|what happen(s|ed) next|the reason why)\b`,
	`\b(hidden|little[- ]known|most people don'?t know)\b`,
	`\b(shocking|surprising)\b`,
	`\?`,
}

var contrarianFramePatterns = []string{
	`\b(everyone|everybody|most people) (thinks?|believes?|says?|assumes?)\b`,
	`\bbut (here'?s|actually|the truth)\b`,
	`\b(impossible|myth|overrated|wrong|lie)\b`,
	`\b(unpopular opinion|contrary to|the opposite)\b`,
	`\b(stop|quit) (believing|doing)\b`,
}

var specificityPatterns = []string{
	`\$\s?\d[\d,]*`,
	`\b\d+(\.\d+)?\s?(%|percent)`,
	`\b\d[\d,]*\s+(dollars|years?|months?|weeks?|days?|hours?|minutes?|people|times|steps?)\b`,
	`\b\d{1,3}(,\d{3})+\b`,
	`\b(million|billion|thousand)\b`,
	`\b(step|rule|tip|reason) (\d+|one|two|three)\b`,
}

var relatabilityPatterns = []string{
	`\b(you|your)\b`,
	`\b(we all|all of us|everyone has)\b`,
	`\bhave you ever\b`,
	`\b(i used to|when i was|my (mom|dad|friend|wife|husband|boss))\b`,
	`\b(struggl|tired of|sick of|frustrat)\w*`,
}

var ctaPatterns = []string{
	`\b(follow|subscribe)\b`,
	`\b(comment|let me know)\b`,
	`\b(share|send) this\b`,
	`\bsave (this|it)\b`,
	`\b(try|do) this\b`,
	`\blink in (bio|description)\b`,
	`\b(watch|wait) (until|till) the end\b`,
}
