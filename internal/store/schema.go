package store

// schemaStatements create every table. DuckDB has no cascading foreign keys;
// ownership is enforced by the store methods.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_allele START 1`,
	`CREATE TABLE IF NOT EXISTS allele (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_allele'),
		genome_reference VARCHAR NOT NULL,
		chromosome VARCHAR NOT NULL,
		start_position BIGINT NOT NULL,
		open_end_position BIGINT NOT NULL,
		change_from VARCHAR NOT NULL,
		change_to VARCHAR NOT NULL,
		change_type VARCHAR NOT NULL,
		length BIGINT NOT NULL,
		vcf_pos BIGINT NOT NULL,
		vcf_ref VARCHAR NOT NULL,
		vcf_alt VARCHAR NOT NULL,
		UNIQUE (chromosome, start_position, open_end_position, change_from, change_to, genome_reference)
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_annotation START 1`,
	`CREATE TABLE IF NOT EXISTS annotation (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_annotation'),
		allele_id BIGINT NOT NULL,
		schema_version BIGINT NOT NULL,
		annotations VARCHAR NOT NULL,
		date_created TIMESTAMP NOT NULL,
		date_superceeded TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS annotationshadowtranscript (
		allele_id BIGINT NOT NULL,
		transcript VARCHAR NOT NULL,
		hgnc_id BIGINT,
		symbol VARCHAR,
		strand BIGINT,
		is_canonical BOOLEAN,
		in_last_exon BOOLEAN,
		consequences VARCHAR,
		hgvsc VARCHAR,
		hgvsp VARCHAR,
		protein VARCHAR,
		exon_distance BIGINT,
		coding_region_distance BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS annotationshadowfrequency (
		allele_id BIGINT NOT NULL,
		provider VARCHAR NOT NULL,
		freq_key VARCHAR NOT NULL,
		freq DOUBLE NOT NULL,
		num BIGINT,
		allele_count BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS annotationshadowmeta (
		fingerprint VARCHAR NOT NULL,
		frequency_groups VARCHAR NOT NULL,
		date_created TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS gene (
		hgnc_id BIGINT PRIMARY KEY,
		hgnc_symbol VARCHAR NOT NULL
	)`,
	`CREATE SEQUENCE IF NOT EXISTS seq_transcript START 1`,
	`CREATE TABLE IF NOT EXISTS transcript (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_transcript'),
		transcript_name VARCHAR NOT NULL UNIQUE,
		gene_id BIGINT NOT NULL,
		chromosome VARCHAR NOT NULL,
		strand BIGINT NOT NULL,
		tx_start BIGINT NOT NULL,
		tx_end BIGINT NOT NULL,
		cds_start BIGINT,
		cds_end BIGINT,
		exon_starts VARCHAR NOT NULL,
		exon_ends VARCHAR NOT NULL,
		source VARCHAR
	)`,
	`CREATE SEQUENCE IF NOT EXISTS seq_phenotype START 1`,
	`CREATE TABLE IF NOT EXISTS phenotype (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_phenotype'),
		gene_id BIGINT NOT NULL,
		description VARCHAR NOT NULL,
		inheritance VARCHAR NOT NULL,
		omim_id BIGINT,
		UNIQUE (gene_id, description, inheritance)
	)`,
	`CREATE TABLE IF NOT EXISTS genepanel (
		name VARCHAR NOT NULL,
		version VARCHAR NOT NULL,
		genome_reference VARCHAR NOT NULL,
		config VARCHAR,
		date_created TIMESTAMP NOT NULL,
		PRIMARY KEY (name, version)
	)`,
	`CREATE TABLE IF NOT EXISTS genepanel_transcript (
		genepanel_name VARCHAR NOT NULL,
		genepanel_version VARCHAR NOT NULL,
		transcript_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS genepanel_phenotype (
		genepanel_name VARCHAR NOT NULL,
		genepanel_version VARCHAR NOT NULL,
		phenotype_id BIGINT NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_analysis START 1`,
	`CREATE TABLE IF NOT EXISTS analysis (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_analysis'),
		name VARCHAR NOT NULL UNIQUE,
		genepanel_name VARCHAR NOT NULL,
		genepanel_version VARCHAR NOT NULL,
		priority BIGINT NOT NULL,
		date_requested TIMESTAMP,
		date_deposited TIMESTAMP NOT NULL,
		report VARCHAR,
		warnings VARCHAR
	)`,
	`CREATE SEQUENCE IF NOT EXISTS seq_analysisinterpretation START 1`,
	`CREATE TABLE IF NOT EXISTS analysisinterpretation (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_analysisinterpretation'),
		analysis_id BIGINT NOT NULL,
		status VARCHAR NOT NULL,
		date_created TIMESTAMP NOT NULL
	)`,
	`CREATE SEQUENCE IF NOT EXISTS seq_sample START 1`,
	`CREATE TABLE IF NOT EXISTS sample (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_sample'),
		identifier VARCHAR NOT NULL,
		analysis_id BIGINT NOT NULL,
		proband BOOLEAN NOT NULL,
		affected BOOLEAN NOT NULL,
		sex VARCHAR NOT NULL,
		father_id BIGINT,
		mother_id BIGINT,
		sample_type VARCHAR NOT NULL,
		family_id VARCHAR,
		date_deposited TIMESTAMP NOT NULL
	)`,
	`CREATE SEQUENCE IF NOT EXISTS seq_genotype START 1`,
	`CREATE TABLE IF NOT EXISTS genotype (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_genotype'),
		allele_id BIGINT NOT NULL,
		secondallele_id BIGINT,
		sample_id BIGINT NOT NULL,
		variant_quality DOUBLE,
		filter_status VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS genotypesampledata (
		genotype_id BIGINT NOT NULL,
		sample_id BIGINT NOT NULL,
		secondallele BOOLEAN NOT NULL,
		type VARCHAR NOT NULL,
		multiallelic BOOLEAN NOT NULL,
		sequencing_depth BIGINT,
		genotype_quality BIGINT,
		allele_depth VARCHAR,
		allele_ratio DOUBLE,
		needs_verification BOOLEAN NOT NULL,
		verification_checks VARCHAR
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_alleleassessment START 1`,
	`CREATE TABLE IF NOT EXISTS alleleassessment (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_alleleassessment'),
		allele_id BIGINT NOT NULL,
		classification VARCHAR NOT NULL,
		evaluation VARCHAR,
		user_id BIGINT NOT NULL,
		genepanel_name VARCHAR,
		genepanel_version VARCHAR,
		date_created TIMESTAMP NOT NULL,
		date_superceeded TIMESTAMP
	)`,
	`CREATE SEQUENCE IF NOT EXISTS seq_allelereport START 1`,
	`CREATE TABLE IF NOT EXISTS allelereport (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_allelereport'),
		allele_id BIGINT NOT NULL,
		evaluation VARCHAR,
		user_id BIGINT NOT NULL,
		date_created TIMESTAMP NOT NULL,
		date_superceeded TIMESTAMP
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_filterconfig START 1`,
	`CREATE TABLE IF NOT EXISTS filterconfig (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_filterconfig'),
		name VARCHAR NOT NULL,
		filterconfig VARCHAR NOT NULL,
		requirements VARCHAR NOT NULL,
		active BOOLEAN NOT NULL,
		schema_version BIGINT NOT NULL,
		date_created TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS usergroupfilterconfig (
		usergroup_id BIGINT NOT NULL,
		filterconfig_id BIGINT NOT NULL,
		ordering BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jsonschema (
		name VARCHAR NOT NULL,
		version BIGINT NOT NULL,
		definition VARCHAR NOT NULL,
		PRIMARY KEY (name, version)
	)`,
}
