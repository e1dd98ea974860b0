package bot

// Reply texts. Markdown is whatever the chat platform renders.

const welcomeMessage = "👋 **Welcome to the Expense Tracker Bot!**\n\n" +
	"I help you track your expenses by logging them to a Google Sheet.\n\n" +
	"**Getting Started:**\n" +
	"1️⃣ Set up with: `!setup your.email@example.com`\n" +
	"2️⃣ Log expenses with: `Category Amount` (e.g., `Food 250`)\n" +
	"3️⃣ View your sheet with: `!url`\n\n" +
	"Type `!help` anytime to see all commands."

const helpMessage = "📋 **Expense Tracker Bot Commands:**\n\n" +
	"**Setup Commands:**\n" +
	"• `!setup your.email@example.com` - Set up your personal expense sheet\n" +
	"• `!url` or `!sheet` or `!link` - Get link to your expense sheet\n\n" +
	"**Expense Logging:**\n" +
	"• `Category Amount` - Log an expense (e.g., `Food 250`, `Gas 45.50`)\n" +
	"• Categories can be anything you choose (Food, Transport, Rent, etc.)\n\n" +
	"**Analysis:**\n" +
	"• `!summary` - View a summary of your expenses\n\n" +
	"**Examples:**\n" +
	"• `Food 120.50` - Logs a food expense of ₹120.50\n" +
	"• `Transport 50` - Logs a transport expense of ₹50\n" +
	"• `Coffee 30` - Logs a coffee expense of ₹30\n\n" +
	"**Other Commands:**\n" +
	"• `!help` - Show this help message\n"

const setupPromptLink = "You haven't set up your expense tracking yet! Use:\n" +
	"!setup your.email@example.com"

const setupPrompt = "You need to set up your expense tracking first! Use:\n" +
	"!setup your.email@example.com"

const summaryAck = "Generating your expense summary... 📊"

const expenseFormatHint = "Please use format: Category Amount (e.g. Food 250)"

func setupCompleteMessage(url string) string {
	return "✅ Setup complete! Your expenses will be logged to:\n" + url + "\n\n" +
		"📝 To log an expense, send: Category Amount\n" +
		"🔗 To get your sheet link: !url\n" +
		"📊 To see your expense summary: !summary"
}

func sheetLinkMessage(url string) string {
	return "Here's the link to your expense sheet: " + url
}
