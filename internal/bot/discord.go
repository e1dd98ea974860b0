package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	applog "expensebot/internal/log"
)

// Discord connects the router to the gateway. Only direct messages reach the
// router; guild traffic and the bot's own messages are dropped here.
type Discord struct {
	session *discordgo.Session
	router  *Router
	log     *applog.Logger
}

func NewDiscord(token string, router *Router, logger *applog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	// Message content in DMs requires the explicit intent.
	session.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	d := &Discord{
		session: session,
		router:  router,
		log:     logger.WithComponent(applog.ComponentBot),
	}
	session.AddHandler(d.onReady)
	session.AddHandler(d.onMessage)
	return d, nil
}

// Run opens the gateway connection and blocks until the context is canceled.
func (d *Discord) Run(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open gateway connection: %w", err)
	}
	<-ctx.Done()
	d.log.Info("closing gateway connection")
	return d.session.Close()
}

func (d *Discord) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	d.log.Info("logged in", "username", r.User.Username, applog.FieldUserID, r.User.ID)
}

func (d *Discord) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	// Direct messages carry no guild identifier.
	if m.GuildID != "" {
		return
	}

	d.router.Handle(context.Background(), Message{
		AuthorID:  m.Author.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}, sessionSender{s})
}

type sessionSender struct {
	s *discordgo.Session
}

func (ss sessionSender) Send(channelID, content string) error {
	_, err := ss.s.ChannelMessageSend(channelID, content)
	return err
}
