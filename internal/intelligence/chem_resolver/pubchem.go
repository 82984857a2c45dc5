package chem_resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// PubChemClient abstracts the PubChem PUG REST API.
type PubChemClient interface {
	SearchByName(ctx context.Context, name string) (*PubChemCompound, error)
}

// PubChemCompound holds the fields of a PubChem compound record that feed a
// PureSubstance.
type PubChemCompound struct {
	CID              int64   `json:"cid"`
	IUPACName        string  `json:"iupac_name"`
	MolecularFormula string  `json:"molecular_formula"`
	MolecularWeight  float64 `json:"molecular_weight"`
	CanonicalSMILES  string  `json:"canonical_smiles"`
	InChI            string  `json:"inchi"`
	InChIKey         string  `json:"inchi_key"`
	CASNumber        string  `json:"cas_number"`
}

const pubchemProperties = "IUPACName,MolecularFormula,MolecularWeight,CanonicalSMILES,InChI,InChIKey"

var casNumberRe = regexp.MustCompile(`^\d{2,7}-\d{2}-\d$`)

// PubChemHTTPClient talks to PUG REST over plain HTTP.
type PubChemHTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewPubChemHTTPClient returns a client rooted at baseURL, e.g.
// https://pubchem.ncbi.nlm.nih.gov/rest/pug.  A nil hc gets a client with the
// given timeout.
func NewPubChemHTTPClient(baseURL string, timeout time.Duration, hc *http.Client) *PubChemHTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &PubChemHTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type propertyTable struct {
	PropertyTable struct {
		Properties []struct {
			CID              int64     `json:"CID"`
			IUPACName        string    `json:"IUPACName"`
			MolecularFormula string    `json:"MolecularFormula"`
			MolecularWeight  flexFloat `json:"MolecularWeight"`
			CanonicalSMILES  string    `json:"CanonicalSMILES"`
			InChI            string    `json:"InChI"`
			InChIKey         string    `json:"InChIKey"`
		} `json:"Properties"`
	} `json:"PropertyTable"`
}

type synonymList struct {
	InformationList struct {
		Information []struct {
			Synonym []string `json:"Synonym"`
		} `json:"Information"`
	} `json:"InformationList"`
}

// flexFloat accepts both JSON numbers and numeric strings; PubChem has served
// MolecularWeight as either.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// SearchByName returns the first compound PubChem lists for name.  The CAS
// number is taken from the compound's synonyms; a failing synonym request
// leaves it empty.
func (c *PubChemHTTPClient) SearchByName(ctx context.Context, name string) (*PubChemCompound, error) {
	endpoint := fmt.Sprintf("%s/compound/name/%s/property/%s/JSON", c.baseURL, url.PathEscape(name), pubchemProperties)
	var table propertyTable
	if err := c.getJSON(ctx, endpoint, &table); err != nil {
		return nil, err
	}
	props := table.PropertyTable.Properties
	if len(props) == 0 {
		return nil, errors.Newf(errors.ErrCodeSubstanceNotFound, "pubchem: no compound named %q", name)
	}
	p := props[0]
	compound := &PubChemCompound{
		CID:              p.CID,
		IUPACName:        p.IUPACName,
		MolecularFormula: p.MolecularFormula,
		MolecularWeight:  float64(p.MolecularWeight),
		CanonicalSMILES:  p.CanonicalSMILES,
		InChI:            p.InChI,
		InChIKey:         p.InChIKey,
	}
	if compound.CID > 0 {
		compound.CASNumber = c.casNumber(ctx, compound.CID)
	}
	return compound, nil
}

func (c *PubChemHTTPClient) casNumber(ctx context.Context, cid int64) string {
	endpoint := fmt.Sprintf("%s/compound/cid/%d/synonyms/JSON", c.baseURL, cid)
	var syn synonymList
	if err := c.getJSON(ctx, endpoint, &syn); err != nil {
		return ""
	}
	for _, info := range syn.InformationList.Information {
		for _, s := range info.Synonym {
			if casNumberRe.MatchString(s) {
				return s
			}
		}
	}
	return ""
}

func (c *PubChemHTTPClient) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeLookupFailed, "pubchem: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeLookupFailed, "pubchem: request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrCodeSubstanceNotFound, "pubchem: compound not found")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf(errors.ErrCodeLookupFailed, "pubchem: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeLookupFailed, "pubchem: decode response")
	}
	return nil
}
