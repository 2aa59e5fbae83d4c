// The account commands are a small convenience tool for manipulating user
// accounts in the configured server database.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kisumi/kisumi/internal/bancho"
	"github.com/kisumi/kisumi/internal/core"
	"github.com/kisumi/kisumi/internal/core/auth"
	"github.com/kisumi/kisumi/internal/core/data"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account management tools",
}

var accountAddCmd = &cobra.Command{
	Use:   "add [username] [password] [email]",
	Short: "Registers new accounts in the database",
	Run:   AccountAddCommand,
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete [username]",
	Short: "Deletes accounts from the database",
	Run:   AccountDeleteCommand,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the registered accounts",
	Run:   AccountListCommand,
}

var accountPasswordCmd = &cobra.Command{
	Use:   "password [username] [password]",
	Short: "Changes the password of an account",
	Run:   AccountPasswordCommand,
}

var PermanentFlag bool

func initDB() (*core.Config, *gorm.DB) {
	cfg, err := core.LoadConfig(ConfigFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	source := cfg.DatabaseURL()
	if cfg.Database.Engine == "sqlite" {
		source = cfg.QualifiedPath(cfg.Database.Filename)
	}
	dialector, err := data.Dialector(cfg.Database.Engine, source)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	db, err := data.Open(dialector, cfg.Debugging.DatabaseLoggingEnabled)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cfg, db
}

func AccountAddCommand(cmd *cobra.Command, args []string) {
	cfg, db := initDB()
	defer data.Close(db)

	var username, password, email string
	username, args = popArg(args, "Username")
	password, args = popArg(args, "Password")
	email, _ = popArg(args, "Email")

	safeName := bancho.SafeName(username)
	if safeName == "" || email == "" {
		fmt.Println("username and email are required")
		return
	}
	account, err := data.FindUnscopedAccount(db, safeName)
	if err != nil {
		fmt.Println("error finding account:", err)
		return
	} else if account != nil {
		fmt.Printf("account '%s' already exists; skipping\n", username)
		return
	}

	hash, err := hashPassword(cfg, password)
	if err != nil {
		fmt.Println("error hashing password:", err)
		return
	}

	account = &data.Account{
		Username:         username,
		SafeName:         safeName,
		Password:         hash,
		RegistrationDate: time.Now(),
		Privileges:       data.PrivilegeNormal | data.PrivilegeVerified,
		Email:            email,
		Country:          "XX",
	}
	if err := data.CreateAccount(db, account); err != nil {
		fmt.Println("error creating account:", err)
		return
	}
	fmt.Printf("created account for '%s' (ID: %d)\n", account.Username, account.ID)
}

func AccountDeleteCommand(cmd *cobra.Command, args []string) {
	_, db := initDB()
	defer data.Close(db)

	username, _ := popArg(args, "Username")
	account, err := findAccount(db, username)
	if err != nil {
		fmt.Println(err)
		return
	}

	if PermanentFlag {
		err = data.PermanentlyDeleteAccount(db, account)
	} else {
		err = data.DeleteAccount(db, account)
	}
	if err != nil {
		fmt.Println("error deleting account:", err)
		return
	}
	fmt.Println("deleted account")
}

func AccountListCommand(cmd *cobra.Command, args []string) {
	_, db := initDB()
	defer data.Close(db)

	accounts, err := data.ListAccounts(db)
	if err != nil {
		fmt.Println("error listing accounts:", err)
		return
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Username", "Country", "Privileges", "Banned", "Registered"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	for _, a := range accounts {
		tw.Append([]string{
			strconv.FormatUint(a.ID, 10),
			a.Username,
			a.Country,
			fmt.Sprintf("%#x", uint32(a.Privileges)),
			strconv.FormatBool(a.Banned),
			a.RegistrationDate.Format("2006-01-02"),
		})
	}
	tw.Render()
}

func AccountPasswordCommand(cmd *cobra.Command, args []string) {
	cfg, db := initDB()
	defer data.Close(db)

	var username, password string
	username, args = popArg(args, "Username")
	password, _ = popArg(args, "Password")

	account, err := findAccount(db, username)
	if err != nil {
		fmt.Println(err)
		return
	}
	hash, err := hashPassword(cfg, password)
	if err != nil {
		fmt.Println("error hashing password:", err)
		return
	}
	if err := data.UpdatePassword(db, account, hash); err != nil {
		fmt.Println("error updating password:", err)
		return
	}
	fmt.Println("updated password")
}

// Clients send the MD5 of the password, so that is what gets hashed.
func hashPassword(cfg *core.Config, password string) (string, error) {
	verifier := auth.NewBcryptVerifier(cfg.Auth.BcryptCost, auth.NewPool(1))
	return verifier.Hash(context.Background(), auth.MD5Hex(password))
}

func popArg(args []string, prompt string) (string, []string) {
	if len(args) == 1 {
		return args[0], nil
	} else if len(args) > 1 {
		return args[0], args[1:]
	}

	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text(), args
}

func findAccount(db *gorm.DB, username string) (*data.Account, error) {
	account, err := data.FindAccountBySafeName(db, bancho.SafeName(username))
	if err != nil {
		return nil, fmt.Errorf("error looking up account: %v", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account '%s' not found", username)
	}
	return account, nil
}
