package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"perepiska/internal/auth"
	"perepiska/internal/avatar"
	"perepiska/internal/config"
	"perepiska/internal/content"
	"perepiska/internal/filestore"
	"perepiska/internal/keyring"
	"perepiska/internal/kv"
	"perepiska/internal/models"
	"perepiska/internal/store"

	"github.com/google/uuid"
)

func run(ctx context.Context) error {
	loginEmail := flag.String("login", "", "Log in with this email (use with -password)")
	registerName := flag.String("register", "", "Register an account with this name (use with -email and -password)")
	email := flag.String("email", "", "Email for -register")
	password := flag.String("password", "", "Password for -login and -register")
	logout := flag.Bool("logout", false, "Log out the current user")
	listContacts := flag.Bool("contacts", false, "List contacts")
	addContactName := flag.String("add-contact", "", "Add a contact with this name (use with -email)")
	deleteContactID := flag.String("delete-contact", "", "Delete the contact with this id")
	setName := flag.String("set-name", "", "Rename the current user's profile")
	listChats := flag.Bool("chats", false, "List chat summaries")
	showChat := flag.String("show-chat", "", "Show messages of the chat with this id and mark it read")
	sendChat := flag.String("send", "", "Send a message to the chat with this id (use with -text)")
	text := flag.String("text", "", "Message text for -send")
	exportPath := flag.String("export", "", "Export a snapshot of all collections to this file")
	importPath := flag.String("import", "", "Import a snapshot from this file, replacing all collections")
	setAvatar := flag.String("set-avatar", "", "Set the current user's avatar from this image file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	st := store.New(backend)

	authService, err := auth.NewService(st, backend)
	if err != nil {
		return err
	}

	ring := keyring.New(backend)
	if _, err := ring.LoadOrGenerate(ctx); err != nil {
		return err
	}

	switch {
	case *loginEmail != "":
		user, err := authService.Login(ctx, *loginEmail, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s <%s> (id %s)\n", user.Name, user.Email, user.ID)
		return nil

	case *registerName != "":
		user, err := authService.Register(ctx, *registerName, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s <%s> (id %s)\n", user.Name, user.Email, user.ID)
		return nil

	case *logout:
		return authService.Logout(ctx)

	case *listContacts:
		contacts, err := st.ListContacts(ctx)
		if err != nil {
			return err
		}
		for _, c := range contacts {
			online := ""
			if c.IsOnline {
				online = " (online)"
			}
			fmt.Printf("%s\t%s <%s>%s\n", c.ID, c.Name, c.Email, online)
		}
		return nil

	case *listChats:
		chats, err := st.ListChats(ctx)
		if err != nil {
			return err
		}
		for _, c := range chats {
			last := "no messages"
			if c.LastMessage != nil {
				last = c.LastMessage.Text
			}
			fmt.Printf("%s\tunread:%d\t%s\n", c.ID, c.UnreadCount, last)
		}
		return nil

	case *addContactName != "":
		contact, err := addContact(ctx, st, *addContactName, *email)
		if err != nil {
			return err
		}
		fmt.Printf("Added contact %s <%s> (id %s)\n", contact.Name, contact.Email, contact.ID)
		return nil

	case *deleteContactID != "":
		return st.DeleteContact(ctx, *deleteContactID)

	case *setName != "":
		return renameUser(ctx, st, *setName)

	case *showChat != "":
		return printChat(ctx, st, *showChat)

	case *sendChat != "":
		return sendMessage(ctx, st, *sendChat, *text)

	case *exportPath != "":
		data, err := st.Export(ctx)
		if err != nil {
			return err
		}
		return os.WriteFile(*exportPath, data, 0600)

	case *importPath != "":
		data, err := os.ReadFile(*importPath)
		if err != nil {
			return err
		}
		return st.Import(ctx, data)

	case *setAvatar != "":
		return saveAvatar(ctx, cfg, st, backend, *setAvatar)
	}

	flag.Usage()
	return nil
}

func openBackend(cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemory(), func() {}, nil
	case config.BackendBolt:
		bolt, err := kv.NewBolt(cfg.DBFile)
		if err != nil {
			return nil, nil, err
		}
		return bolt, func() { _ = bolt.Close() }, nil
	case config.BackendSecure:
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, nil, err
		}
		secure, err := kv.NewSecure(cfg.DataDir, cfg.Passphrase)
		if err != nil {
			return nil, nil, err
		}
		return secure, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func printChat(ctx context.Context, st *store.Store, chatID string) error {
	messages, err := st.ListChatMessages(ctx, chatID)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		rendered, err := content.RenderMessage(msg.Text)
		if err != nil {
			return err
		}
		ts := time.UnixMilli(msg.Timestamp).Format(time.RFC822)
		fmt.Printf("[%s] %s: %s\n", ts, msg.SenderID, rendered)
	}
	return st.MarkChatRead(ctx, chatID)
}

func addContact(ctx context.Context, st *store.Store, name, email string) (models.Contact, error) {
	if err := content.ValidateEmail(email); err != nil {
		return models.Contact{}, err
	}
	contact := models.Contact{
		ID:    uuid.NewString(),
		Name:  content.Sanitize(name),
		Email: email,
	}
	if err := st.UpsertContact(ctx, contact); err != nil {
		return models.Contact{}, err
	}
	return contact, nil
}

func renameUser(ctx context.Context, st *store.Store, name string) error {
	user, err := st.CurrentUser(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return errors.New("not logged in")
	}
	if err != nil {
		return err
	}
	user.Name = content.Sanitize(name)
	return st.SaveCurrentUser(ctx, user)
}

func sendMessage(ctx context.Context, st *store.Store, chatID, text string) error {
	if text == "" {
		return errors.New("-send requires -text")
	}
	user, err := st.CurrentUser(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return errors.New("not logged in")
	}
	if err != nil {
		return err
	}

	message := models.Message{
		ID:         uuid.NewString(),
		Text:       content.Sanitize(text),
		SenderID:   user.ID,
		ReceiverID: chatID,
		Timestamp:  time.Now().UnixMilli(),
		Status:     models.MessageStatusSent,
	}
	return st.ApplyMessage(ctx, message, user.ID)
}

func saveAvatar(ctx context.Context, cfg *config.Config, st *store.Store, backend kv.Store, path string) error {
	user, err := st.CurrentUser(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return errors.New("not logged in")
	}
	if err != nil {
		return err
	}

	files, err := filestore.NewLocal(cfg.AvatarsPath)
	if err != nil {
		return err
	}
	avatars := avatar.NewService(backend, files)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	meta, err := avatars.Save(ctx, f)
	if err != nil {
		return err
	}

	user.Avatar = meta.ID
	return st.SaveCurrentUser(ctx, user)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
