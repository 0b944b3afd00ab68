// Command keypair writes a fresh base account key pair for a new
// deployment of the GIF program.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v3"

	"gifportal/solprogram"
	"gifportal/wallet"
)

func main() {
	cmd := &cli.Command{
		Name:  "keypair",
		Usage: "generate the base account key pair",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "keypair.json", Usage: "output file"},
			&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
			&cli.StringFlag{Name: "network", Value: solprogram.NetworkDevnet, Usage: "network for the explorer link"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.String("out")
			if _, err := os.Stat(out); err == nil && !cmd.Bool("force") {
				return fmt.Errorf("%s already exists, pass --force to overwrite", out)
			}

			key, err := solana.NewRandomPrivateKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			if err := wallet.WriteKeypairFile(out, key); err != nil {
				return err
			}

			pub := key.PublicKey().String()
			fmt.Println("Wrote", out)
			fmt.Println("Base account:", pub)
			fmt.Println("Explorer:", solprogram.ExplorerAddressURL(cmd.String("network"), pub))
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "keypair:", err)
		os.Exit(1)
	}
}
