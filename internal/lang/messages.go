package lang

type MessageID string

const (
	Start          MessageID = "start"
	Help           MessageID = "help"
	Downloading    MessageID = "downloading"
	Progress       MessageID = "progress"
	Queued         MessageID = "queued"
	Compressing    MessageID = "compressing"
	Sending        MessageID = "sending"
	Done           MessageID = "done"
	SentFiles      MessageID = "sent_files"
	ErrorReply     MessageID = "error_reply"
	InstagramInfo  MessageID = "instagram_info"
	NoCaption      MessageID = "no_caption"
	YouTubeCaption MessageID = "youtube_caption"
	SkippedFile    MessageID = "skipped_file"
	Stats          MessageID = "stats"
	StatsDisabled  MessageID = "stats_disabled"
	Status         MessageID = "status"
	NotAllowed     MessageID = "not_allowed"
	RateLimited    MessageID = "rate_limited"
	UnknownCommand MessageID = "unknown_command"
	ShuttingDown   MessageID = "shutting_down"

	ErrIGNoShortcode   MessageID = "error.ig.no_shortcode"
	ErrIGLogin         MessageID = "error.ig.login_required"
	ErrIGProfile       MessageID = "error.ig.profile_missing"
	ErrIGPostMissing   MessageID = "error.ig.post_missing"
	ErrIGRateLimit     MessageID = "error.ig.rate_limit"
	ErrIGConnection    MessageID = "error.ig.connection"
	ErrIGGeneric       MessageID = "error.ig.generic"
	ErrIGAgeRestricted MessageID = "error.ig.age_restricted"
	ErrIGFallbackLogin MessageID = "error.ig.fallback_login"
	ErrIGFallback      MessageID = "error.ig.fallback_failed"
	ErrYTBotCheck      MessageID = "error.yt.bot_check"
	ErrYTPrivate       MessageID = "error.yt.private"
	ErrYTUnavailable   MessageID = "error.yt.unavailable"
	ErrYTAgeRestricted MessageID = "error.yt.age_restricted"
	ErrYTRateLimit     MessageID = "error.yt.rate_limit"
	ErrNoMedia         MessageID = "error.no_media"
	ErrTooLarge        MessageID = "error.too_large"
	ErrToolMissing     MessageID = "error.tool_missing"
	ErrNoSpace         MessageID = "error.no_space"
	ErrTimeout         MessageID = "error.timeout"
	ErrUpload          MessageID = "error.upload"
	ErrNothingSent     MessageID = "error.nothing_sent"
	ErrGeneric         MessageID = "error.generic"
)

var messages = map[MessageID]map[string]string{
	Start: {
		"en": "🤖 *Media Downloader Bot*\n\nHello %s!\n\nSend me links to download:\n📸 *Instagram* - Posts, Reels\n🎬 *YouTube* - Videos\n\nYour Chat ID: `%d`",
		"ru": "🤖 *Media Downloader Bot*\n\nПривет, %s!\n\nПришлите ссылку для загрузки:\n📸 *Instagram* - посты, Reels\n🎬 *YouTube* - видео\n\nВаш Chat ID: `%d`",
	},
	Help: {
		"en": "Send a YouTube or Instagram link and I will reply with the media.\n\n/start - greeting\n/stats - your download history\n/status - server status",
		"ru": "Пришлите ссылку на YouTube или Instagram, и я отвечу файлом.\n\n/start - приветствие\n/stats - история загрузок\n/status - состояние сервера",
	},
	Downloading: {
		"en": "⏳ Downloading from %s...",
		"ru": "⏳ Загрузка из %s...",
	},
	Progress: {
		"en": "⏳ Downloading from %s... %.0f%%",
		"ru": "⏳ Загрузка из %s... %.0f%%",
	},
	Queued: {
		"en": "🕒 Queued, position %d",
		"ru": "🕒 В очереди, позиция %d",
	},
	Compressing: {
		"en": "🗜 Compressing video (%s MB)...",
		"ru": "🗜 Сжатие видео (%s МБ)...",
	},
	Sending: {
		"en": "📤 Sending files...",
		"ru": "📤 Отправка файлов...",
	},
	Done: {
		"en": "✅ Done!",
		"ru": "✅ Готово!",
	},
	SentFiles: {
		"en": "✅ Sent %d/%d files",
		"ru": "✅ Отправлено файлов: %d/%d",
	},
	ErrorReply: {
		"en": "❌ Error:\n%s",
		"ru": "❌ Ошибка:\n%s",
	},
	InstagramInfo: {
		"en": "📸 <b>Instagram Post</b>\n👤 @%s\n\n%s",
	},
	NoCaption: {
		"en": "<i>No caption</i>",
		"ru": "<i>Без подписи</i>",
	},
	YouTubeCaption: {
		"en": "🎬 %s\n📦 %sMB",
	},
	SkippedFile: {
		"en": "⚠️ Skipped %s: %s MB is over the %d MB limit",
		"ru": "⚠️ Пропущен %s: %s МБ больше лимита %d МБ",
	},
	Stats: {
		"en": "📊 Your downloads: %d (%d ok, %d failed)\n🌐 All users: %d downloads, %s sent",
		"ru": "📊 Ваши загрузки: %d (успешно %d, с ошибкой %d)\n🌐 Все пользователи: %d загрузок, отправлено %s",
	},
	StatsDisabled: {
		"en": "Download history is disabled on this server.",
		"ru": "История загрузок отключена на этом сервере.",
	},
	Status: {
		"en": "🖥 Uptime: %s\n🧠 Memory: %.0f%% used\n📁 Temp disk: %s free of %s\n⚙️ Jobs: %d active, %d queued",
		"ru": "🖥 Аптайм: %s\n🧠 Память: занято %.0f%%\n📁 Временный диск: свободно %s из %s\n⚙️ Задачи: %d активных, %d в очереди",
	},
	NotAllowed: {
		"en": "⛔ You are not allowed to use this bot.",
		"ru": "⛔ У вас нет доступа к этому боту.",
	},
	RateLimited: {
		"en": "⏳ Too many requests. Please wait a minute.",
		"ru": "⏳ Слишком много запросов. Подождите минуту.",
	},
	UnknownCommand: {
		"en": "Unknown command. Send /help for the list.",
		"ru": "Неизвестная команда. Отправьте /help.",
	},
	ShuttingDown: {
		"en": "The bot is restarting, please send the link again later.",
		"ru": "Бот перезапускается, отправьте ссылку позже.",
	},

	ErrIGNoShortcode: {
		"en": "Could not find post code in URL",
	},
	ErrIGLogin: {
		"en": "Login required - post may be private",
	},
	ErrIGProfile: {
		"en": "Profile not found or private",
	},
	ErrIGPostMissing: {
		"en": "Post not found (deleted or private)",
	},
	ErrIGRateLimit: {
		"en": "⛔ INSTAGRAM RATE LIMIT (429)\n\nToo many requests. Wait 30-60 minutes.",
	},
	ErrIGConnection: {
		"en": "Connection error: %s",
	},
	ErrIGGeneric: {
		"en": "Error: %s",
	},
	ErrIGAgeRestricted: {
		"en": "This post is age-restricted or flagged as inappropriate by Instagram.\n\nI cannot download restricted content.",
	},
	ErrIGFallbackLogin: {
		"en": "This post requires login to view.\n\nIt may be from a private account or age-restricted.",
	},
	ErrIGFallback: {
		"en": "Download failed: %s\n\nThe post may be deleted, private, or restricted.",
	},
	ErrYTBotCheck: {
		"en": "YouTube asked to confirm this is not a bot. The server cookies need to be refreshed.",
	},
	ErrYTPrivate: {
		"en": "This video is private.",
	},
	ErrYTUnavailable: {
		"en": "This video is unavailable.",
	},
	ErrYTAgeRestricted: {
		"en": "This video is age-restricted and needs cookies from a signed-in account.",
	},
	ErrYTRateLimit: {
		"en": "YouTube is rate limiting this server. Try again later.",
	},
	ErrNoMedia: {
		"en": "No media files found",
		"ru": "Медиафайлы не найдены",
	},
	ErrTooLarge: {
		"en": "The file is too large (%s MB). The limit is %d MB.",
		"ru": "Файл слишком большой (%s МБ). Лимит %d МБ.",
	},
	ErrToolMissing: {
		"en": "%s is not installed on the server.",
		"ru": "%s не установлен на сервере.",
	},
	ErrNoSpace: {
		"en": "Not enough free disk space on the server.",
		"ru": "Недостаточно места на диске сервера.",
	},
	ErrTimeout: {
		"en": "The download took too long and was stopped.",
		"ru": "Загрузка заняла слишком много времени и была остановлена.",
	},
	ErrUpload: {
		"en": "Failed to send the file: %s",
		"ru": "Не удалось отправить файл: %s",
	},
	ErrNothingSent: {
		"en": "None of the files could be sent.",
		"ru": "Не удалось отправить ни одного файла.",
	},
	ErrGeneric: {
		"en": "%s",
	},
}
